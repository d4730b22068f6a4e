package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
)

// Transport opens the connection a single exchange is written to and read from.
// The engine owns the returned conn and closes it when the exchange resolves.
type Transport interface {
	Dial(ctx context.Context, opts *Options) (net.Conn, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, opts *Options) (net.Conn, error)

func (f TransportFunc) Dial(ctx context.Context, opts *Options) (net.Conn, error) {
	return f(ctx, opts)
}

// Registry maps URI schemes to transports.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{transports: make(map[string]Transport)}
}

// DefaultRegistry returns a registry serving http over TCP and https over TLS.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("http", &PlainTransport{})
	r.Register("https", &TLSTransport{})
	return r
}

// Register binds scheme to t, replacing any previous binding.
func (r *Registry) Register(scheme string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[strings.ToLower(scheme)] = t
}

// Lookup returns the transport for scheme or ErrUnsupportedScheme.
func (r *Registry) Lookup(scheme string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return t, nil
}

// Schemes lists the registered schemes.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.transports))
	for s := range r.transports {
		out = append(out, s)
	}
	return out
}

var defaultPorts = map[string]string{
	"http": "80", "https": "443",
}

// PlainTransport dials a TCP connection.
type PlainTransport struct {
	Dialer net.Dialer
}

func (t *PlainTransport) Dial(ctx context.Context, opts *Options) (net.Conn, error) {
	return dialTCP(ctx, &t.Dialer, opts)
}

// TLSTransport dials TCP and performs a TLS client handshake. Certificate
// verification follows Options.RejectUnauthorized.
type TLSTransport struct {
	Dialer net.Dialer
}

func (t *TLSTransport) Dial(ctx context.Context, opts *Options) (net.Conn, error) {
	conn, err := dialTCP(ctx, &t.Dialer, opts)
	if err != nil {
		return nil, err
	}

	config := opts.Transport.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	config.ServerName = opts.URL.Hostname()
	if opts.Transport.ServerName != "" {
		config.ServerName = opts.Transport.ServerName
	}
	config.InsecureSkipVerify = !opts.RejectUnauthorized
	// no h2 support, so only offer http/1.1
	config.NextProtos = []string{"http/1.1"}

	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func dialTCP(ctx context.Context, d *net.Dialer, opts *Options) (net.Conn, error) {
	host, port := opts.URL.Hostname(), opts.URL.Port()
	if port == "" {
		port = defaultPorts[strings.ToLower(opts.URL.Scheme)]
	}
	if static, ok := opts.Transport.StaticHosts[host]; ok {
		host = static
	}

	network := "tcp"
	switch opts.Transport.Network {
	case "ip4":
		network = "tcp4"
	case "ip6":
		network = "tcp6"
	}

	dialer := *d
	if opts.Transport.LocalAddr != "" {
		addr, err := net.ResolveTCPAddr(network, net.JoinHostPort(opts.Transport.LocalAddr, "0"))
		if err != nil {
			return nil, err
		}
		dialer.LocalAddr = addr
	}
	return dialer.DialContext(ctx, network, net.JoinHostPort(host, port))
}
