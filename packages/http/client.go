package http

import (
	"context"

	"github.com/abdul-hamid-achik/hitwire/packages/decode"
	"github.com/rs/zerolog"
)

// Client dispatches transactions. A zero-configuration client from NewClient
// speaks http and https; it is safe for concurrent use.
type Client struct {
	registry       *Registry
	decoder        *decode.Decoder
	logger         zerolog.Logger
	maxRedirects   int
	defaultHeaders Header
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		registry:       DefaultRegistry(),
		logger:         zerolog.Nop(),
		maxRedirects:   DefaultMaxRedirects,
		defaultHeaders: Header{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.decoder == nil {
		c.decoder = decode.New(decode.WithLogger(c.logger))
	}
	return c
}

// WithRegistry replaces the scheme to transport registry.
func WithRegistry(r *Registry) ClientOption {
	return func(c *Client) {
		c.registry = r
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDecoder replaces the content decoder used on response bodies.
func WithDecoder(d *decode.Decoder) ClientOption {
	return func(c *Client) {
		c.decoder = d
	}
}

// WithMaxRedirects bounds redirect following. Zero disables it.
func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders.Set(key, value)
	}
}

// WithDefaultHeaders adds headers sent with every request unless the
// description sets them itself.
func WithDefaultHeaders(headers Header) ClientOption {
	return func(c *Client) {
		for k, vv := range headers {
			c.defaultHeaders.Del(k)
			c.defaultHeaders[k] = append([]string(nil), vv...)
		}
	}
}

// Request performs the exchange described by desc, following redirects when
// desc.Follow is set. Setup failures (unparseable URI, unregistered scheme)
// are returned as errors before any network activity. Every failure after
// dispatch is recorded on the returned transaction's Info.Error instead, so
// a non-nil error and a non-nil transaction are never returned together.
func (c *Client) Request(ctx context.Context, desc *Description) (*Transaction, error) {
	if desc == nil {
		return nil, ErrNilDescription
	}
	desc = c.withDefaults(desc)

	current := desc
	if c.maxRedirects <= 0 && desc.Follow {
		current = hop(desc, desc.URI, false)
	}

	for hops := 1; ; hops++ {
		tx, target, err := c.dispatch(ctx, current)
		if err != nil {
			return nil, err
		}
		if target == "" {
			return tx, nil
		}
		c.logger.Debug().Str("from", current.URI).Str("to", target).Int("hop", hops).Msg("following redirect")
		current = hop(desc, target, hops < c.maxRedirects)
	}
}

// Fetch is shorthand for a GET of uri.
func (c *Client) Fetch(ctx context.Context, uri string, headers Header, opts ...RequestOption) (*Transaction, error) {
	desc := &Description{
		Method:  "GET",
		URI:     uri,
		Headers: headers,
	}
	for _, opt := range opts {
		opt(desc)
	}
	return c.Request(ctx, desc)
}

// dispatch runs one hop. A non-empty target means the response was a
// followable redirect and tx is nil.
func (c *Client) dispatch(ctx context.Context, desc *Description) (tx *Transaction, target string, err error) {
	tx, opts, err := Build(desc)
	if err != nil {
		return nil, "", err
	}
	transport, err := c.registry.Lookup(opts.URL.Scheme)
	if err != nil {
		return nil, "", err
	}

	tx, target = newExchange(tx, opts, transport, c).run(ctx)
	return tx, target, nil
}

func (c *Client) withDefaults(desc *Description) *Description {
	if len(c.defaultHeaders) == 0 {
		return desc
	}
	next := *desc
	next.Headers = desc.Headers.Clone()
	for k, vv := range c.defaultHeaders {
		if _, ok := next.Headers.Lookup(k); !ok {
			next.Headers[k] = append([]string(nil), vv...)
		}
	}
	return &next
}

var defaultClient = NewClient()

// Request performs desc with a default client.
func Request(ctx context.Context, desc *Description) (*Transaction, error) {
	return defaultClient.Request(ctx, desc)
}

// Fetch performs a GET of uri with a default client.
func Fetch(ctx context.Context, uri string, headers Header, opts ...RequestOption) (*Transaction, error) {
	return defaultClient.Fetch(ctx, uri, headers, opts...)
}
