package config

import (
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/decode"
	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/observability"
	"github.com/rs/zerolog"
)

// ClientOptions translates c into options for http.NewClient. Decode
// diagnostics are off in production environments.
func (c *Config) ClientOptions(logger zerolog.Logger) []http.ClientOption {
	maxRedirects := c.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = http.DefaultMaxRedirects
	}

	return []http.ClientOption{
		http.WithLogger(logger),
		http.WithMaxRedirects(maxRedirects),
		http.WithDefaultHeaders(http.HeaderFromMap(c.Headers)),
		http.WithDecoder(decode.New(
			decode.WithLogger(logger),
			decode.WithDiagnostics(!observability.IsProduction(c.Environment)),
		)),
	}
}

// TimeoutDuration returns the configured timeout in the form Description.Timeout
// expects: zero for the default when unset, negative to disable when set to 0
// or below.
func (c *Config) TimeoutDuration() time.Duration {
	switch {
	case c.Timeout == nil:
		return 0
	case *c.Timeout <= 0:
		return -1
	}
	return time.Duration(*c.Timeout) * time.Millisecond
}

// Apply fills the settings desc leaves open from c. Values desc sets
// explicitly win.
func (c *Config) Apply(desc *http.Description) {
	if desc.Timeout == 0 {
		desc.Timeout = c.TimeoutDuration()
	}
	if !desc.Follow {
		desc.Follow = c.GetFollowRedirects()
	}
	if desc.Download == nil && c.Download != nil {
		desc.Download = http.Bool(*c.Download)
	}
	if desc.CorrectHeaders == nil && c.CorrectHeaders != nil {
		desc.CorrectHeaders = http.Bool(*c.CorrectHeaders)
	}
	if desc.RejectUnauthorized == nil && c.RejectUnauthorized != nil {
		desc.RejectUnauthorized = http.Bool(*c.RejectUnauthorized)
	}
}
