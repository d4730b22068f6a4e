// Package description reads request description files. A file is YAML or
// JSON and holds either one request at the top level or a list under
// "requests", plus optional "vars" substituted into {{name}} references.
package description

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/core/env"
	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ErrInvalid wraps schema violations.
var ErrInvalid = errors.New("invalid description")

// File is a parsed description file.
type File struct {
	Vars     map[string]string `yaml:"vars"`
	Requests []Request         `yaml:"requests"`
}

// Request is one request as written in a file. Timeout is in milliseconds;
// an explicit 0 or a negative value disables both timers, absent means the default.
type Request struct {
	Name               string            `yaml:"name"`
	Type               string            `yaml:"type"`
	Method             string            `yaml:"method"`
	URI                string            `yaml:"uri"`
	Version            string            `yaml:"version"`
	Headers            map[string]Values `yaml:"headers"`
	Body               string            `yaml:"body"`
	Timeout            *int              `yaml:"timeout"`
	Follow             bool              `yaml:"follow"`
	Download           *bool             `yaml:"download"`
	CorrectHeaders     *bool             `yaml:"correctHeaders"`
	RejectUnauthorized *bool             `yaml:"rejectUnauthorized"`
	Info               map[string]any    `yaml:"info"`
	Transport          Transport         `yaml:"transport"`
}

type Transport struct {
	Network     string            `yaml:"network"`
	StaticHosts map[string]string `yaml:"staticHosts"`
	LocalAddr   string            `yaml:"localAddr"`
	ServerName  string            `yaml:"serverName"`
}

// Values accepts a header written as a scalar or a list of scalars.
type Values []string

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Values, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: header values must be scalars", n.Line)
			}
			out = append(out, n.Value)
		}
		*v = out
		return nil
	}
	return fmt.Errorf("line %d: header value must be a scalar or a list", node.Line)
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the description schema and decodes it.
func Parse(data []byte) (*File, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	doc = normalize(doc)

	if err := validate(doc); err != nil {
		return nil, err
	}

	// Re-encode the normalized document so the single-request form decodes
	// through the same path as the list form. JSON is valid YAML.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(normalized, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &f, nil
}

// normalize moves a top-level request under "requests".
func normalize(doc map[string]any) map[string]any {
	if _, ok := doc["requests"]; ok {
		return doc
	}
	out := map[string]any{}
	if vars, ok := doc["vars"]; ok {
		out["vars"] = vars
		delete(doc, "vars")
	}
	out["requests"] = []any{doc}
	return out
}

func validate(doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Descriptions converts every request in f, expanding {{name}} references
// from f.Vars, then vars, then the process environment. vars wins over f.Vars.
func (f *File) Descriptions(vars map[string]string) ([]*http.Description, error) {
	merged := make(map[string]string, len(f.Vars)+len(vars))
	for k, v := range f.Vars {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	descs := make([]*http.Description, 0, len(f.Requests))
	for i, r := range f.Requests {
		d, err := r.Description(merged)
		if err != nil {
			name := r.Name
			if name == "" {
				name = fmt.Sprintf("request %d", i+1)
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Description converts r into an engine description.
func (r *Request) Description(vars map[string]string) (*http.Description, error) {
	var missing []string
	expand := func(s string) string {
		out, m := env.Expand(s, vars)
		missing = append(missing, m...)
		return out
	}

	desc := &http.Description{
		Type:               r.Type,
		Method:             strings.ToUpper(r.Method),
		URI:                expand(r.URI),
		Version:            r.Version,
		Follow:             r.Follow,
		Download:           r.Download,
		CorrectHeaders:     r.CorrectHeaders,
		RejectUnauthorized: r.RejectUnauthorized,
		Info:               r.Info,
		Transport: http.TransportOptions{
			Network:     r.Transport.Network,
			StaticHosts: r.Transport.StaticHosts,
			LocalAddr:   r.Transport.LocalAddr,
			ServerName:  r.Transport.ServerName,
		},
	}

	switch {
	case r.Timeout == nil:
	case *r.Timeout <= 0:
		desc.Timeout = -1
	default:
		desc.Timeout = time.Duration(*r.Timeout) * time.Millisecond
	}

	if len(r.Headers) > 0 {
		desc.Headers = make(http.Header, len(r.Headers))
		for k, vv := range r.Headers {
			for _, v := range vv {
				desc.Headers[k] = append(desc.Headers[k], expand(v))
			}
		}
	}
	if r.Body != "" {
		desc.Body = []byte(expand(r.Body))
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("undefined variables: %s", strings.Join(missing, ", "))
	}
	return desc, nil
}
