// Package decode turns a possibly compressed response body back into its
// original bytes. The declared Content-Encoding is tried first; without one
// the leading bytes are sniffed for a gzip or zlib signature. Decoding is
// best effort: on any failure the input is returned unchanged.
package decode

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"
)

// Func decompresses a complete body.
type Func func(body []byte) ([]byte, error)

// Sniffer pairs a signature predicate with the decoder it selects.
type Sniffer struct {
	Name  string
	Match func(body []byte) bool
	Func  Func
}

// encodings maps a normalized Content-Encoding token to its decoder.
var encodings = map[string]Func{
	"gzip":    Gunzip,
	"x-gzip":  Gunzip,
	"deflate": Inflate,
	"br":      Unbrotli,
}

// sniffers are evaluated in order when no known encoding is declared.
var sniffers = []Sniffer{
	{Name: "gzip", Match: IsGzip, Func: Gunzip},
	{Name: "deflate", Match: IsDeflate, Func: Inflate},
}

// Decoder applies the encoding and sniffing tables to response bodies.
type Decoder struct {
	logger      zerolog.Logger
	diagnostics bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithDiagnostics enables or disables warnings for bodies that fail to decode.
func WithDiagnostics(enabled bool) Option {
	return func(d *Decoder) {
		d.diagnostics = enabled
	}
}

// New creates a Decoder. Diagnostics are on and logging is discarded by default.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		logger:      zerolog.Nop(),
		diagnostics: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode returns the decompressed body, or body itself when it is not
// compressed or cannot be decoded. contentEncoding is the raw header value.
func (d *Decoder) Decode(body []byte, contentEncoding string) []byte {
	if len(body) == 0 {
		return body
	}

	name, fn := Select(body, contentEncoding)
	if fn == nil {
		return body
	}

	out, err := fn(body)
	if err != nil {
		if d.diagnostics {
			d.logger.Warn().
				Err(err).
				Str("encoding", name).
				Int("bytes", len(body)).
				Msg("response body left undecoded")
		}
		return body
	}
	return out
}

// Select picks the decoder for body: the declared encoding when it is known,
// otherwise the first matching sniffer. It returns a nil Func when neither applies.
func Select(body []byte, contentEncoding string) (string, Func) {
	declared := strings.ToLower(strings.TrimSpace(contentEncoding))
	if fn, ok := encodings[declared]; ok {
		return declared, fn
	}
	for _, s := range sniffers {
		if s.Match(body) {
			return s.Name, s.Func
		}
	}
	return "", nil
}

// IsGzip reports whether body starts with the gzip member header (RFC 1952).
func IsGzip(body []byte) bool {
	return len(body) >= 3 && body[0] == 0x1f && body[1] == 0x8b && body[2] == 0x08
}

// IsDeflate reports whether body starts with a valid zlib header (RFC 1950):
// compression method 8, a window of at most 32K and a correct check value.
func IsDeflate(body []byte) bool {
	if len(body) < 2 {
		return false
	}
	cmf, flg := body[0], body[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Gunzip decodes a gzip body, including multi-member streams.
func Gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return readAll(zr, "gzip")
}

// Inflate decodes a "deflate" body. Servers disagree on whether that means
// zlib-wrapped or raw DEFLATE, so zlib is tried first.
func Inflate(body []byte) ([]byte, error) {
	if IsDeflate(body) {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err == nil {
			out, err := readAll(zr, "deflate")
			zr.Close()
			if err == nil {
				return out, nil
			}
		}
	}
	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return readAll(fr, "deflate")
}

// Unbrotli decodes a brotli body.
func Unbrotli(body []byte) ([]byte, error) {
	return readAll(brotli.NewReader(bytes.NewReader(body)), "br")
}

func readAll(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
