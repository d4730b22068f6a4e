package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errChunkFormat = errors.New("wire: malformed chunked encoding")

// NewChunkedReader returns a reader that decodes a chunked message body.
// Trailers are read and discarded.
func NewChunkedReader(br *bufio.Reader) io.Reader {
	return &chunkedReader{br: br}
}

type chunkedReader struct {
	br     *bufio.Reader
	remain int64
	done   bool
}

func (c *chunkedReader) readChunkHeader() (int64, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	line = strings.TrimRight(line, "\r\n")
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i] // chunk extensions
	}
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 16 {
		return 0, errChunkFormat
	}
	var n int64
	for i := 0; i < len(line); i++ {
		b := line[i]
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errChunkFormat
		}
		n = n<<4 | int64(b)
	}
	if n < 0 {
		return 0, errChunkFormat
	}
	return n, nil
}

func (c *chunkedReader) readTrailers() error {
	for {
		line, err := c.br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}
	if c.remain == 0 {
		n, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			if err := c.readTrailers(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.remain = n
	}
	if int64(len(p)) > c.remain {
		p = p[:c.remain]
	}
	n, err := c.br.Read(p)
	c.remain -= int64(n)
	if err == io.EOF {
		return n, io.ErrUnexpectedEOF
	}
	if err != nil {
		return n, err
	}
	if c.remain == 0 {
		cr, err1 := c.br.ReadByte()
		lf, err2 := c.br.ReadByte()
		if err1 != nil || err2 != nil {
			return n, io.ErrUnexpectedEOF
		}
		if cr != '\r' || lf != '\n' {
			return n, errChunkFormat
		}
	}
	return n, nil
}

// NewChunkedWriter returns a writer that frames each Write as one chunk.
// Close writes the terminating zero-length chunk.
func NewChunkedWriter(w io.Writer) io.WriteCloser {
	return &chunkedWriter{w}
}

type chunkedWriter struct {
	wire io.Writer
}

func (cw *chunkedWriter) Write(data []byte) (n int, err error) {
	// a zero-length chunk would terminate the body
	if len(data) == 0 {
		return 0, nil
	}
	if _, err = fmt.Fprintf(cw.wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.wire.Write(data); err != nil {
		return n, err
	}
	if n != len(data) {
		return n, io.ErrShortWrite
	}
	_, err = io.WriteString(cw.wire, "\r\n")
	return n, err
}

func (cw *chunkedWriter) Close() error {
	_, err := io.WriteString(cw.wire, "0\r\n\r\n")
	return err
}
