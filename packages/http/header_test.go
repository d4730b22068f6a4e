package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader_CaseInsensitive(t *testing.T) {
	h := Header{"Content-Type": {"text/plain"}}

	assert.Equal(t, "text/plain", h.Get("content-type"))
	assert.True(t, h.Has("CONTENT-TYPE"))
	assert.Equal(t, "", h.Get("missing"))

	h.Set("content-type", "application/json")
	assert.Len(t, h, 1)
	assert.Equal(t, "application/json", h.Get("Content-Type"))

	h.Add("X-Multi", "a")
	h.Add("x-multi", "b")
	assert.Equal(t, []string{"a", "b"}, h.Values("X-MULTI"))

	h.Del("X-MULTI")
	assert.False(t, h.Has("x-multi"))
}

func TestHeader_HasIgnoresEmptyValues(t *testing.T) {
	h := Header{"Content-Length": {""}}

	_, ok := h.Lookup("content-length")
	assert.True(t, ok)
	assert.False(t, h.Has("content-length"))
}

func TestHeader_Clone(t *testing.T) {
	var nilHeader Header
	assert.NotNil(t, nilHeader.Clone())

	h := Header{"A": {"1"}}
	c := h.Clone()
	c.Add("A", "2")
	assert.Equal(t, []string{"1"}, h["A"])
}

func TestHeaderFromMap(t *testing.T) {
	h := HeaderFromMap(map[string]string{"Accept": "*/*"})
	assert.Equal(t, "*/*", h.Get("accept"))
}
