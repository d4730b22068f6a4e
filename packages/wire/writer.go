package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Request is everything needed to put one request on the wire.
type Request struct {
	Method  string
	Target  string // origin-form request target, e.g. "/path?q=1"
	Version string
	Host    string
	Header  map[string][]string
	Body    []byte
}

// WriteRequest writes the request line, header block and body of r to w.
// Header names are written exactly as given. A Host header is added unless the
// caller supplied one, and "Connection: close" is added unless the caller set
// Connection. A non-empty body with neither Content-Length nor
// Transfer-Encoding is sent chunked.
func WriteRequest(w io.Writer, r *Request) error {
	bw := bufio.NewWriter(w)

	version := r.Version
	if version == "" {
		version = "HTTP/1.1"
	}
	target := r.Target
	if target == "" {
		target = "/"
	}
	if !httpguts.ValidHeaderFieldName(r.Method) {
		return fmt.Errorf("%w: invalid method %q", ErrInvalidHeader, r.Method)
	}

	bw.WriteString(r.Method)
	bw.WriteByte(' ')
	bw.WriteString(target)
	bw.WriteByte(' ')
	bw.WriteString(version)
	bw.WriteString("\r\n")

	if !hasField(r.Header, "Host") {
		writeField(bw, "Host", r.Host)
	}
	if !hasField(r.Header, "Connection") {
		writeField(bw, "Connection", "close")
	}

	chunked := len(r.Body) > 0 &&
		!hasField(r.Header, "Content-Length") &&
		!hasField(r.Header, "Transfer-Encoding")
	if chunked {
		writeField(bw, "Transfer-Encoding", "chunked")
	}

	for k, vv := range r.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("%w: invalid header name %q", ErrInvalidHeader, k)
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("%w: invalid value for header %q", ErrInvalidHeader, k)
			}
			writeField(bw, k, v)
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	if len(r.Body) > 0 {
		if chunked {
			cw := NewChunkedWriter(bw)
			if _, err := cw.Write(r.Body); err != nil {
				return err
			}
			if err := cw.Close(); err != nil {
				return err
			}
		} else if _, err := bw.Write(r.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeField(bw *bufio.Writer, k, v string) {
	bw.WriteString(k)
	bw.WriteString(": ")
	bw.WriteString(v)
	bw.WriteString("\r\n")
}

func hasField(h map[string][]string, name string) bool {
	for k, vv := range h {
		if strings.EqualFold(k, name) && len(vv) > 0 {
			return true
		}
	}
	return false
}
