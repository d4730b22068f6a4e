package http

import "strings"

// Header maps header names to their values. Names keep the case they were
// given in; lookups ignore case.
type Header map[string][]string

// Get returns the first value of the header matching key case-insensitively,
// or "" when it is absent.
func (h Header) Get(key string) string {
	v, _ := h.Lookup(key)
	return v
}

// Lookup is like Get but also reports whether the header was present.
func (h Header) Lookup(key string) (string, bool) {
	for k, vv := range h {
		if strings.EqualFold(k, key) {
			if len(vv) == 0 {
				return "", true
			}
			return vv[0], true
		}
	}
	return "", false
}

// Values returns every value of the header matching key case-insensitively.
func (h Header) Values(key string) []string {
	var out []string
	for k, vv := range h {
		if strings.EqualFold(k, key) {
			out = append(out, vv...)
		}
	}
	return out
}

// Has reports whether a non-empty header matching key exists.
func (h Header) Has(key string) bool {
	v, ok := h.Lookup(key)
	return ok && v != ""
}

// Set replaces any header matching key case-insensitively with a single value
// stored under key.
func (h Header) Set(key, value string) {
	h.Del(key)
	h[key] = []string{value}
}

// Add appends value to the header matching key, keeping the existing spelling.
func (h Header) Add(key, value string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			h[k] = append(h[k], value)
			return
		}
	}
	h[key] = []string{value}
}

// Del removes every header matching key case-insensitively.
func (h Header) Del(key string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
}

// Clone returns a deep copy of h. The clone of a nil Header is an empty Header.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// HeaderFromMap converts single-valued headers, as kept in config files.
func HeaderFromMap(m map[string]string) Header {
	h := make(Header, len(m))
	for k, v := range m {
		h[k] = []string{v}
	}
	return h
}
