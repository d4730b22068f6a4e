package http

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawServer accepts TCP connections and hands each to handle. It returns the
// base URI of the listener.
func rawServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()
	return "http://" + ln.Addr().String()
}

// readRequest consumes a request head so that closing the connection
// afterwards produces a clean EOF on the client side.
func readRequest(t *testing.T, conn net.Conn) *http.Request {
	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		t.Errorf("reading request: %v", err)
		return nil
	}
	return req
}

func gzipBytes(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		assert.Equal(t, "q=1", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	tx, err := client.Fetch(context.Background(), server.URL+"/test?q=1", nil)

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, DefaultType, tx.Type)
	assert.Equal(t, "GET", tx.Method)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Equal(t, "OK", tx.ResponseMessage)
	assert.Equal(t, "HTTP/1.1", tx.ResponseVersion)
	assert.Equal(t, "application/json", tx.Header("content-type"))
	assert.Contains(t, tx.BodyString(), "hello")
	assert.False(t, tx.Info.StopTime.Before(tx.Info.StartTime))
}

func TestClient_PostSetsContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, int64(len(`{"name": "test"}`)), r.ContentLength)
		assert.Empty(t, r.TransferEncoding)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name": "test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	tx, err := NewClient().Request(context.Background(), &Description{
		Method:  "POST",
		URI:     server.URL,
		Headers: Header{"Content-Type": {"application/json"}},
		Body:    []byte(`{"name": "test"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 201, tx.ResponseCode)
	assert.Equal(t, "Created", tx.ResponseMessage)
	assert.Contains(t, tx.BodyString(), "123")
	assert.Equal(t, "16", tx.Headers.Get("content-length"))
}

func TestClient_PackageLevelFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	tx, err := Fetch(context.Background(), server.URL, nil, WithType("ping"), WithInfo(map[string]any{"run": 7}))

	require.NoError(t, err)
	assert.Equal(t, "pong", tx.BodyString())
	assert.Equal(t, "ping", tx.Type)
	assert.Equal(t, 7, tx.Info.Extra["run"])
}

func TestClient_WithoutDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Marker", "yes")
		_, _ = w.Write([]byte("ignored body"))
	}))
	defer server.Close()

	tx, err := NewClient().Fetch(context.Background(), server.URL, nil, WithDownload(false))

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Equal(t, "yes", tx.Header("X-Marker"))
	assert.NotNil(t, tx.ResponseBody)
	assert.Empty(t, tx.ResponseBody)
}

func TestClient_WithoutDownloadNeverReadsBody(t *testing.T) {
	release := make(chan struct{})
	serverDone := make(chan error, 1)
	var bodySent atomic.Bool

	uri := rawServer(t, func(conn net.Conn) {
		readRequest(t, conn)
		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n")
		<-release
		bodySent.Store(true)
		_, _ = io.WriteString(conn, "hello")
		// the client has hung up, so this read ends with EOF or a reset
		_, err := conn.Read(make([]byte, 1))
		serverDone <- err
	})
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	tx, err := NewClient().Fetch(context.Background(), uri, nil, WithDownload(false), WithTimeout(2*time.Second))

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error, "resolving must not wait for the body")
	assert.False(t, bodySent.Load(), "resolved before the server sent any body bytes")
	assert.Equal(t, 200, tx.ResponseCode)
	assert.NotNil(t, tx.ResponseBody)
	assert.Empty(t, tx.ResponseBody)

	close(release)
	select {
	case err := <-serverDone:
		assert.Error(t, err, "connection is closed once the head is recorded")
	case <-time.After(2 * time.Second):
		t.Fatal("server still connected after the transaction resolved")
	}
}

func TestClient_HeadHasNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "42")
	}))
	defer server.Close()

	tx, err := NewClient().Request(context.Background(), &Description{Method: "HEAD", URI: server.URL})

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Empty(t, tx.ResponseBody)
}

func TestClient_ChunkedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("first,"))
		flusher.Flush()
		_, _ = w.Write([]byte("second"))
	}))
	defer server.Close()

	tx, err := NewClient().Fetch(context.Background(), server.URL, nil)

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, "first,second", tx.BodyString())
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "mine", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(Header{
		"Authorization": {"test-token"},
		"User-Agent":    {"custom-agent"},
	}))
	desc := &Description{URI: server.URL, Headers: Header{"user-agent": {"mine"}}}
	tx, err := client.Request(context.Background(), desc)

	require.NoError(t, err)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Len(t, desc.Headers, 1, "caller description must not be modified")
}

func TestClient_InterimResponsesSkipped(t *testing.T) {
	uri := rawServer(t, func(conn net.Conn) {
		readRequest(t, conn)
		_, _ = io.WriteString(conn, "HTTP/1.1 100 Continue\r\n\r\n"+
			"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	})

	tx, err := NewClient().Fetch(context.Background(), uri, nil)

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Equal(t, "ok", tx.BodyString())
}

func TestClient_IdleTimeoutKeepsPartialBody(t *testing.T) {
	uri := rawServer(t, func(conn net.Conn) {
		readRequest(t, conn)
		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nhello")
		_, _ = io.Copy(io.Discard, conn)
	})

	tx, err := NewClient().Fetch(context.Background(), uri, nil, WithTimeout(100*time.Millisecond))

	require.NoError(t, err)
	assert.ErrorIs(t, tx.Info.Error, ErrTimeout)
	var te *TransportError
	require.ErrorAs(t, tx.Info.Error, &te)
	assert.Equal(t, PhaseResponse, te.Phase)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Equal(t, "hello", tx.BodyString())
}

func TestClient_ConnectTimeout(t *testing.T) {
	uri := rawServer(t, func(conn net.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	})

	start := time.Now()
	tx, err := NewClient().Fetch(context.Background(), uri, nil, WithTimeout(100*time.Millisecond))

	require.NoError(t, err)
	assert.ErrorIs(t, tx.Info.Error, ErrTimeout)
	var te *TransportError
	require.ErrorAs(t, tx.Info.Error, &te)
	assert.Equal(t, PhaseRequest, te.Phase)
	assert.Equal(t, 0, tx.ResponseCode)
	assert.Empty(t, tx.ResponseBody)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_ContextCancelAborts(t *testing.T) {
	uri := rawServer(t, func(conn net.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	tx, err := NewClient().Fetch(ctx, uri, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, tx.Info.Error, ErrAbort)
	assert.ErrorIs(t, tx.Info.Error, context.DeadlineExceeded)
	assert.Less(t, tx.Info.Duration(), 5*time.Second)
}

func TestClient_PrematureCloseIsAborted(t *testing.T) {
	uri := rawServer(t, func(conn net.Conn) {
		readRequest(t, conn)
		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc")
	})

	tx, err := NewClient().Fetch(context.Background(), uri, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, tx.Info.Error, ErrAborted)
	assert.Equal(t, "abc", tx.BodyString())
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tx, err := NewClient().Fetch(context.Background(), "http://"+addr, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, tx.Info.Error, ErrTransport)
	var te *TransportError
	require.ErrorAs(t, tx.Info.Error, &te)
	assert.Equal(t, PhaseRequest, te.Phase)
}

func TestClient_SetupErrors(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want error
	}{
		{name: "unsupported scheme", uri: "ftp://example.com/file", want: ErrUnsupportedScheme},
		{name: "relative uri", uri: "/just/a/path", want: ErrInvalidURI},
		{name: "unparseable uri", uri: "http://[::1", want: ErrInvalidURI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewClient().Fetch(context.Background(), tt.uri, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, tx)
		})
	}

	_, err := NewClient().Request(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilDescription)

	_, err = NewClient().Fetch(context.Background(), "ftp://example.com/file", nil)
	assert.EqualError(t, err, "unsupported transport: ftp")
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	tx, err := NewClient().Fetch(context.Background(), server.URL+"/redirect", nil, WithFollow(true))

	require.NoError(t, err)
	assert.Equal(t, 200, tx.ResponseCode)
	assert.Equal(t, "final", tx.BodyString())
	assert.Equal(t, server.URL+"/final", tx.URI)
	assert.Equal(t, 1, redirectCount)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	tx, err := NewClient().Fetch(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 302, tx.ResponseCode)
	assert.Equal(t, "/final", tx.Header("Location"))
}

func TestClient_MaxRedirects(t *testing.T) {
	var redirectCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount.Add(1)
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(3))
	tx, err := client.Fetch(context.Background(), server.URL+"/redirect", nil, WithFollow(true))

	require.NoError(t, err)
	// the hop after the last permitted redirect returns the 3xx as is
	assert.Equal(t, 302, tx.ResponseCode)
	assert.Equal(t, int32(4), redirectCount.Load())
}

func TestClient_RedirectClosesPreviousConnection(t *testing.T) {
	firstClosed := make(chan struct{})
	uri := rawServer(t, func(conn net.Conn) {
		req := readRequest(t, conn)
		if req == nil {
			return
		}
		if req.URL.Path == "/final" {
			_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone")
			return
		}
		_, _ = io.WriteString(conn, "HTTP/1.1 301 Moved Permanently\r\nLocation: /final\r\nContent-Length: 0\r\n\r\n")
		_, _ = io.Copy(io.Discard, conn)
		close(firstClosed)
	})

	tx, err := NewClient().Fetch(context.Background(), uri+"/start", nil, WithFollow(true))

	require.NoError(t, err)
	assert.Equal(t, "done", tx.BodyString())
	select {
	case <-firstClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("redirecting connection was not closed")
	}
}

func TestClient_RedirectToUnsupportedSchemeIsNotFollowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "ftp://files.example.com/pub")
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer server.Close()

	tx, err := NewClient().Fetch(context.Background(), server.URL, nil, WithFollow(true))

	require.NoError(t, err)
	assert.Equal(t, 303, tx.ResponseCode)
}

func TestClient_DecodesBodies(t *testing.T) {
	compressed := gzipBytes(t, "compressed payload")

	tests := []struct {
		name     string
		encoding string
		body     []byte
		want     string
	}{
		{name: "declared gzip", encoding: "gzip", body: compressed, want: "compressed payload"},
		{name: "sniffed gzip", body: compressed, want: "compressed payload"},
		{name: "identity", body: []byte("plain"), want: "plain"},
		{name: "broken gzip passes through", encoding: "gzip", body: []byte("not gzip"), want: "not gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			tx, err := NewClient().Fetch(context.Background(), server.URL, nil)

			require.NoError(t, err)
			require.NoError(t, tx.Info.Error)
			assert.Equal(t, tt.want, tx.BodyString())
		})
	}
}

func TestClient_TLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	t.Run("verification failure is a transport error", func(t *testing.T) {
		tx, err := NewClient().Fetch(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, tx.Info.Error, ErrTransport)
	})

	t.Run("unverified", func(t *testing.T) {
		tx, err := NewClient().Fetch(context.Background(), server.URL, nil, WithRejectUnauthorized(false))
		require.NoError(t, err)
		require.NoError(t, tx.Info.Error)
		assert.Equal(t, "secure", tx.BodyString())
	})
}

func TestClient_CustomTransport(t *testing.T) {
	var seen atomic.Pointer[http.Request]
	pipe := TransportFunc(func(ctx context.Context, opts *Options) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			req, err := http.ReadRequest(bufio.NewReader(server))
			if err != nil {
				return
			}
			seen.Store(req)
			_, _ = io.WriteString(server, "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nmemory")
		}()
		return client, nil
	})

	registry := NewRegistry()
	registry.Register("mem", pipe)
	client := NewClient(WithRegistry(registry))

	tx, err := client.Fetch(context.Background(), "mem://service/path", nil)

	require.NoError(t, err)
	require.NoError(t, tx.Info.Error)
	assert.Equal(t, "memory", tx.BodyString())
	req := seen.Load()
	require.NotNil(t, req)
	assert.Equal(t, "service", req.Host)
	assert.Equal(t, "/path", req.URL.Path)
	assert.True(t, req.Close)

	_, err = client.Fetch(context.Background(), "http://example.com", nil)
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))
}
