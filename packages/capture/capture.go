package capture

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/tidwall/gjson"
)

// Source names where a capture reads from.
type Source string

const (
	SourceBody     Source = "body"
	SourceHeader   Source = "header"
	SourceStatus   Source = "status"
	SourceDuration Source = "duration"
)

// Capture selects one value from a transaction. Path is a gjson path for
// body captures and a header name for header captures.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

// Parse reads a capture written as "source" or "source:path", e.g.
// "body:items.0.id" or "header:Content-Type". A bare path means body.
func Parse(expr string) Capture {
	source, path, found := strings.Cut(expr, ":")
	switch Source(source) {
	case SourceBody, SourceHeader, SourceStatus, SourceDuration:
		if !found {
			path = ""
		}
		return Capture{Name: expr, Source: Source(source), Path: path}
	}
	return Capture{Name: expr, Source: SourceBody, Path: expr}
}

type Extractor struct {
	tx       *http.Transaction
	bodyJSON gjson.Result
	isJSON   bool
}

// NewExtractor parses the response body as JSON when it is valid JSON,
// whatever the declared content type.
func NewExtractor(tx *http.Transaction) *Extractor {
	e := &Extractor{tx: tx}
	if tx.IsJSON() || gjson.ValidBytes(tx.ResponseBody) {
		e.bodyJSON = gjson.ParseBytes(tx.ResponseBody)
		e.isJSON = e.bodyJSON.Exists()
	}
	return e
}

func (e *Extractor) Extract(c Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		return e.extractFromHeader(c.Path)
	case SourceStatus:
		if e.tx.ResponseCode == 0 {
			return nil, false
		}
		return e.tx.ResponseCode, true
	case SourceDuration:
		return e.tx.DurationMs(), true
	default:
		return nil, false
	}
}

// Raw returns the selected value as text: JSON values keep their JSON form.
func (e *Extractor) Raw(c Capture) (string, error) {
	if c.Source == SourceBody && e.isJSON && c.Path != "" {
		result := e.bodyJSON.Get(c.Path)
		if !result.Exists() {
			return "", fmt.Errorf("no value at %q", c.Path)
		}
		if result.Type == gjson.String {
			return result.Str, nil
		}
		return result.Raw, nil
	}

	v, ok := e.Extract(c)
	if !ok {
		return "", fmt.Errorf("no value for %s %q", c.Source, c.Path)
	}
	return fmt.Sprint(v), nil
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.isJSON {
		if path == "" {
			return e.tx.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value, ok := e.tx.ResponseHeaders.Lookup(name)
	if !ok {
		return nil, false
	}
	return value, true
}

// ExtractAll runs every capture and keeps those that found a value.
func ExtractAll(tx *http.Transaction, captures []Capture) map[string]any {
	extractor := NewExtractor(tx)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}
