package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the hitwire configuration
type Config struct {
	Timeout            *int              `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds; 0 or negative disables
	FollowRedirects    *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	Download           *bool             `json:"download,omitempty" yaml:"download,omitempty"`
	CorrectHeaders     *bool             `json:"correctHeaders,omitempty" yaml:"correctHeaders,omitempty"`
	RejectUnauthorized *bool             `json:"rejectUnauthorized,omitempty" yaml:"rejectUnauthorized,omitempty"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Concurrency        int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Rate               float64           `json:"rate,omitempty" yaml:"rate,omitempty"` // requests per second, 0 for unlimited
	LogLevel           string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Environment        string            `json:"environment,omitempty" yaml:"environment,omitempty"`
	Journal            string            `json:"journal,omitempty" yaml:"journal,omitempty"` // SQLite journal path, empty disables
	EnvFile            string            `json:"envFile,omitempty" yaml:"envFile,omitempty"`
	NoColor            *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i
func IntPtr(i int) *int {
	return &i
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to false
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, false)
}

// GetDownload returns the download setting, defaulting to true
func (c *Config) GetDownload() bool {
	return getBool(c.Download, true)
}

// GetCorrectHeaders returns the header correction setting, defaulting to true
func (c *Config) GetCorrectHeaders() bool {
	return getBool(c.CorrectHeaders, true)
}

// GetRejectUnauthorized returns the TLS verification setting, defaulting to true
func (c *Config) GetRejectUnauthorized() bool {
	return getBool(c.RejectUnauthorized, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".hitwire.yaml",
	".hitwire.yml",
	"hitwire.json",
	".hitwirerc",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads a YAML file by its extension, JSON otherwise.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout != nil {
		result.Timeout = IntPtr(*other.Timeout)
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.Journal != "" {
		result.Journal = other.Journal
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.Download != nil {
		result.Download = other.Download
	}
	if other.CorrectHeaders != nil {
		result.CorrectHeaders = other.CorrectHeaders
	}
	if other.RejectUnauthorized != nil {
		result.RejectUnauthorized = other.RejectUnauthorized
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig writes the configuration as YAML or JSON depending on the extension of path.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
