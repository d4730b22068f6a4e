// Package config loads hitwire configuration.
//
// It provides functionality for:
//   - Loading .hitwire.yaml, .hitwire.yml, hitwire.json or .hitwirerc files
//   - Default configuration values
//   - HITWIRE_* environment variable overrides and an optional .env file
//   - Translating configuration into client and request options
package config
