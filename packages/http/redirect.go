package http

import (
	"net/url"
	"strings"
)

// DefaultMaxRedirects bounds the number of hops Request follows.
const DefaultMaxRedirects = 10

// isRedirect reports whether code is a 3xx status.
func isRedirect(code int) bool {
	return code >= 300 && code < 400
}

// redirectTarget resolves the Location of a redirect response against the
// URI that produced it. ok is false when the response is not a followable
// redirect: no Location, or one that does not parse.
func redirectTarget(current string, code int, headers Header) (target string, ok bool) {
	if !isRedirect(code) {
		return "", false
	}
	location := strings.TrimSpace(headers.Get("location"))
	if location == "" {
		return "", false
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// hop returns a copy of desc aimed at uri, leaving everything else as the
// caller described it.
func hop(desc *Description, uri string, follow bool) *Description {
	next := *desc
	next.URI = uri
	next.Follow = follow
	return &next
}
