package config

import "github.com/abdul-hamid-achik/hitwire/packages/http"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:      IntPtr(int(http.DefaultTimeout.Milliseconds())),
		MaxRedirects: http.DefaultMaxRedirects,
		Concurrency:  10,
		LogLevel:     "info",
		Environment:  "development",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout != nil && *c.Timeout == *defaults.Timeout &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.Concurrency == defaults.Concurrency &&
		c.Rate == defaults.Rate &&
		c.LogLevel == defaults.LogLevel &&
		c.Environment == defaults.Environment &&
		c.Journal == defaults.Journal &&
		c.EnvFile == defaults.EnvFile &&
		len(c.Headers) == 0 &&
		c.FollowRedirects == nil &&
		c.Download == nil &&
		c.CorrectHeaders == nil &&
		c.RejectUnauthorized == nil &&
		c.NoColor == nil
}
