package config

import (
	"fmt"
	"strconv"

	"github.com/abdul-hamid-achik/hitwire/packages/core/env"
)

// EnvPrefix is the prefix of environment variables read by ApplyEnv.
const EnvPrefix = "HITWIRE_"

// ApplyEnv returns a copy of c overlaid with HITWIRE_* environment variables.
// When c names an env file it is exported first, so its values count as
// environment variables that are not already set.
func (c *Config) ApplyEnv() (*Config, error) {
	if c.EnvFile != "" {
		if _, err := env.ExportDotEnv(c.EnvFile); err != nil {
			return nil, err
		}
	}

	result := *c
	for key, value := range env.Prefixed(EnvPrefix) {
		if err := result.set(key, value); err != nil {
			return nil, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
	}
	return &result, nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "TIMEOUT":
		var ms int
		if ms, err = strconv.Atoi(value); err == nil {
			c.Timeout = &ms
		}
	case "MAX_REDIRECTS":
		c.MaxRedirects, err = strconv.Atoi(value)
	case "CONCURRENCY":
		c.Concurrency, err = strconv.Atoi(value)
	case "RATE":
		c.Rate, err = strconv.ParseFloat(value, 64)
	case "FOLLOW_REDIRECTS":
		c.FollowRedirects, err = parseBool(value)
	case "DOWNLOAD":
		c.Download, err = parseBool(value)
	case "CORRECT_HEADERS":
		c.CorrectHeaders, err = parseBool(value)
	case "REJECT_UNAUTHORIZED":
		c.RejectUnauthorized, err = parseBool(value)
	case "NO_COLOR":
		c.NoColor, err = parseBool(value)
	case "LOG_LEVEL":
		c.LogLevel = value
	case "ENVIRONMENT":
		c.Environment = value
	case "JOURNAL":
		c.Journal = value
	}
	return err
}

func parseBool(s string) (*bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
