package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
)

var (
	// ErrMalformedResponse reports a status line or header block that could not be parsed.
	ErrMalformedResponse = errors.New("wire: malformed HTTP response")
	// ErrInvalidHeader reports a request header that cannot be serialized safely.
	ErrInvalidHeader = errors.New("wire: invalid header")
)

// Head is the status line and header block of a response.
type Head struct {
	Proto      string
	StatusCode int
	Message    string
	Header     map[string][]string
}

// ReadHead reads the response head from br. Interim 1xx responses other than
// 101 Switching Protocols are consumed and skipped.
func ReadHead(br *bufio.Reader) (*Head, error) {
	tp := textproto.NewReader(br)
	for {
		h, err := readOneHead(tp)
		if err != nil {
			return nil, err
		}
		if h.StatusCode >= 100 && h.StatusCode < 200 && h.StatusCode != 101 {
			continue
		}
		return h, nil
	}
}

func readOneHead(tp *textproto.Reader) (*Head, error) {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("%w: status line %q", ErrMalformedResponse, line)
	}
	status = strings.TrimLeft(status, " ")
	code, message, _ := strings.Cut(status, " ")
	if len(code) != 3 {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedResponse, code)
	}
	statusCode, err := strconv.Atoi(code)
	if err != nil || statusCode < 100 {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedResponse, code)
	}

	mime, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Head{
		Proto:      proto,
		StatusCode: statusCode,
		Message:    message,
		Header:     map[string][]string(mime),
	}, nil
}

// BodyReader returns a reader framing the response body that follows h on br.
// It returns nil when the response carries no body at all (HEAD requests,
// 1xx, 204 and 304).
func BodyReader(br *bufio.Reader, h *Head, method string) (io.Reader, error) {
	if strings.EqualFold(method, "HEAD") ||
		(h.StatusCode >= 100 && h.StatusCode < 200) ||
		h.StatusCode == 204 || h.StatusCode == 304 {
		return nil, nil
	}

	for _, te := range h.Header["Transfer-Encoding"] {
		if strings.Contains(strings.ToLower(te), "chunked") {
			return NewChunkedReader(br), nil
		}
	}

	lens := h.Header["Content-Length"]
	if len(lens) > 1 {
		// same hardening as net/http against smuggling
		first := textproto.TrimString(lens[0])
		for _, v := range lens[1:] {
			if first != textproto.TrimString(v) {
				return nil, fmt.Errorf("%w: multiple Content-Length headers %q", ErrMalformedResponse, lens)
			}
		}
	}
	if len(lens) > 0 {
		n, err := strconv.ParseInt(textproto.TrimString(lens[0]), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: Content-Length %q", ErrMalformedResponse, lens[0])
		}
		return &exactReader{r: br, remain: n}, nil
	}

	// no framing: the body runs until the server closes the connection
	return br, nil
}

// exactReader reads exactly remain bytes, turning an early EOF into
// io.ErrUnexpectedEOF so a truncated body is distinguishable from a complete one.
type exactReader struct {
	r      io.Reader
	remain int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	if e.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.remain {
		p = p[:e.remain]
	}
	n, err := e.r.Read(p)
	e.remain -= int64(n)
	if err == io.EOF {
		if e.remain > 0 {
			return n, io.ErrUnexpectedEOF
		}
		return n, nil
	}
	return n, err
}
