package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	tx, opts, err := Build(&Description{URI: "http://example.com/a?b=c"})

	require.NoError(t, err)
	assert.Equal(t, "GET", opts.Method)
	assert.Equal(t, DefaultVersion, opts.Version)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.True(t, opts.Download)
	assert.True(t, opts.CorrectHeaders)
	assert.True(t, opts.RejectUnauthorized)
	assert.False(t, opts.Follow)

	assert.Equal(t, DefaultType, tx.Type)
	assert.Equal(t, "http://example.com/a?b=c", tx.URI)
	assert.Equal(t, DefaultVersion, tx.ResponseVersion)
	assert.NotNil(t, tx.ResponseHeaders)
	assert.NotNil(t, tx.ResponseBody)
	assert.Nil(t, tx.Info.Error)
	assert.True(t, tx.Info.StartTime.IsZero())
}

func TestBuild_Timeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{name: "zero uses default", in: 0, want: DefaultTimeout},
		{name: "explicit", in: 250 * time.Millisecond, want: 250 * time.Millisecond},
		{name: "negative disables", in: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, opts, err := Build(&Description{URI: "http://example.com", Timeout: tt.in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.Timeout)
		})
	}
}

func TestBuild_ContentLength(t *testing.T) {
	t.Run("added for body", func(t *testing.T) {
		tx, _, err := Build(&Description{Method: "POST", URI: "http://example.com", Body: []byte("hello")})
		require.NoError(t, err)
		assert.Equal(t, "5", tx.Headers.Get("Content-Length"))
	})

	t.Run("caller value kept", func(t *testing.T) {
		tx, _, err := Build(&Description{
			Method:  "POST",
			URI:     "http://example.com",
			Headers: Header{"Content-Length": {"5"}},
			Body:    []byte("hello"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"5"}, tx.Headers.Values("content-length"))
	})

	t.Run("not added with transfer-encoding", func(t *testing.T) {
		tx, _, err := Build(&Description{
			Method:  "POST",
			URI:     "http://example.com",
			Headers: Header{"Transfer-Encoding": {"chunked"}},
			Body:    []byte("hello"),
		})
		require.NoError(t, err)
		assert.False(t, tx.Headers.Has("content-length"))
	})

	t.Run("not added when correction disabled", func(t *testing.T) {
		tx, _, err := Build(&Description{
			Method:         "POST",
			URI:            "http://example.com",
			Body:           []byte("hello"),
			CorrectHeaders: Bool(false),
		})
		require.NoError(t, err)
		assert.False(t, tx.Headers.Has("content-length"))
	})

	t.Run("not added without body", func(t *testing.T) {
		tx, _, err := Build(&Description{URI: "http://example.com"})
		require.NoError(t, err)
		assert.False(t, tx.Headers.Has("content-length"))
	})
}

func TestBuild_DoesNotModifyDescription(t *testing.T) {
	desc := &Description{
		Method:  "POST",
		URI:     "http://example.com",
		Headers: Header{"X-A": {"1"}},
		Body:    []byte("x"),
		Info:    map[string]any{"k": "v"},
	}

	tx, _, err := Build(desc)
	require.NoError(t, err)
	tx.Info.Extra["k"] = "changed"

	assert.Len(t, desc.Headers, 1)
	assert.Equal(t, "v", desc.Info["k"])
}

func TestBuild_InvalidURI(t *testing.T) {
	for _, uri := range []string{"", "example.com/path", "http://"} {
		_, _, err := Build(&Description{URI: uri})
		assert.ErrorIs(t, err, ErrInvalidURI, uri)
	}
}

func TestRequestOptions(t *testing.T) {
	desc := &Description{}
	for _, opt := range []RequestOption{
		WithTimeout(time.Second),
		WithFollow(true),
		WithDownload(false),
		WithCorrectHeaders(false),
		WithRejectUnauthorized(false),
		WithType("probe"),
		WithInfo(map[string]any{"a": 1}),
		WithInfo(map[string]any{"b": 2}),
		WithTransportOptions(TransportOptions{Network: "ip4"}),
	} {
		opt(desc)
	}

	assert.Equal(t, time.Second, desc.Timeout)
	assert.True(t, desc.Follow)
	assert.False(t, *desc.Download)
	assert.False(t, *desc.CorrectHeaders)
	assert.False(t, *desc.RejectUnauthorized)
	assert.Equal(t, "probe", desc.Type)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, desc.Info)
	assert.Equal(t, "ip4", desc.Transport.Network)

	WithoutTimeout()(desc)
	assert.Negative(t, desc.Timeout)
}
