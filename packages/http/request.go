package http

import (
	"crypto/tls"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultTimeout is the silence allowed before connect and data-idle timeouts fire
	DefaultTimeout = 30 * time.Second
	// DefaultVersion is the protocol written on the request line
	DefaultVersion = "HTTP/1.1"
)

// Description is what a caller asks for. It is never modified by the engine;
// redirects re-dispatch a copy with only URI replaced.
type Description struct {
	Type    string
	Method  string
	URI     string
	Version string
	Headers Header
	Body    []byte
	// Info fields are copied into Transaction.Info.Extra.
	Info map[string]any

	// Timeout of zero means DefaultTimeout; a negative value disables both timers.
	Timeout time.Duration
	Follow  bool
	// Download, CorrectHeaders and RejectUnauthorized default to true when nil.
	Download           *bool
	CorrectHeaders     *bool
	RejectUnauthorized *bool

	Transport TransportOptions
}

// TransportOptions are handed through to the Transport untouched.
type TransportOptions struct {
	Network     string            // "ip4", "ip6" or empty for either
	StaticHosts map[string]string // host -> address overrides, like /etc/hosts
	LocalAddr   string
	ServerName  string      // TLS server name override
	TLSConfig   *tls.Config // base TLS config, cloned per connection
}

// Options is the normalized form of a Description handed to transports.
type Options struct {
	URL     *url.URL
	Method  string
	Version string
	Headers Header
	Body    []byte

	Timeout            time.Duration // zero when disabled
	Follow             bool
	Download           bool
	CorrectHeaders     bool
	RejectUnauthorized bool

	Transport TransportOptions
}

// Bool returns a pointer to b, for the optional Description flags.
func Bool(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// Build normalizes desc into a fresh Transaction and the Options used to
// dispatch it. It has no side effects; the start time is stamped at dispatch.
func Build(desc *Description) (*Transaction, *Options, error) {
	if desc == nil {
		return nil, nil, ErrNilDescription
	}

	u, err := url.Parse(desc.URI)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf("%w: %q is not an absolute URI", ErrInvalidURI, desc.URI)
	}

	opts := &Options{
		URL:                u,
		Method:             desc.Method,
		Version:            desc.Version,
		Headers:            desc.Headers.Clone(),
		Body:               desc.Body,
		Timeout:            desc.Timeout,
		Follow:             desc.Follow,
		Download:           getBool(desc.Download, true),
		CorrectHeaders:     getBool(desc.CorrectHeaders, true),
		RejectUnauthorized: getBool(desc.RejectUnauthorized, true),
		Transport:          desc.Transport,
	}
	if opts.Method == "" {
		opts.Method = "GET"
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	switch {
	case opts.Timeout == 0:
		opts.Timeout = DefaultTimeout
	case opts.Timeout < 0:
		opts.Timeout = 0
	}

	if len(opts.Body) > 0 && opts.CorrectHeaders &&
		!opts.Headers.Has("transfer-encoding") && !opts.Headers.Has("content-length") {
		opts.Headers["content-length"] = []string{strconv.Itoa(len(opts.Body))}
	}

	txType := desc.Type
	if txType == "" {
		txType = DefaultType
	}

	tx := &Transaction{
		Type:    txType,
		Method:  opts.Method,
		URI:     desc.URI,
		Version: opts.Version,
		Headers: opts.Headers,
		Body:    desc.Body,

		ResponseVersion: opts.Version,
		ResponseHeaders: Header{},
		ResponseBody:    []byte{},

		Info: Info{
			Extra: maps.Clone(desc.Info),
		},
	}
	return tx, opts, nil
}

// RequestOption adjusts a Description built by Fetch.
type RequestOption func(*Description)

// WithTimeout sets the connect and data-idle timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Description) {
		r.Timeout = d
	}
}

// WithoutTimeout disables both timers.
func WithoutTimeout() RequestOption {
	return func(r *Description) {
		r.Timeout = -1
	}
}

func WithFollow(follow bool) RequestOption {
	return func(r *Description) {
		r.Follow = follow
	}
}

// WithDownload controls whether the response body is read at all.
func WithDownload(download bool) RequestOption {
	return func(r *Description) {
		r.Download = Bool(download)
	}
}

func WithCorrectHeaders(correct bool) RequestOption {
	return func(r *Description) {
		r.CorrectHeaders = Bool(correct)
	}
}

// WithRejectUnauthorized controls TLS certificate verification.
func WithRejectUnauthorized(reject bool) RequestOption {
	return func(r *Description) {
		r.RejectUnauthorized = Bool(reject)
	}
}

func WithType(t string) RequestOption {
	return func(r *Description) {
		r.Type = t
	}
}

// WithInfo merges fields into the transaction's Info.Extra.
func WithInfo(info map[string]any) RequestOption {
	return func(r *Description) {
		if r.Info == nil {
			r.Info = make(map[string]any, len(info))
		}
		maps.Copy(r.Info, info)
	}
}

func WithTransportOptions(t TransportOptions) RequestOption {
	return func(r *Description) {
		r.Transport = t
	}
}
