package http

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultType is the Transaction.Type used when the description has none.
const DefaultType = "base"

// Transaction is the full record of one request/response exchange. It is
// owned by the engine until Request returns it and must not be mutated by the
// engine afterwards.
type Transaction struct {
	Type string

	Method  string
	URI     string
	Version string
	Headers Header
	Body    []byte

	ResponseVersion string
	ResponseCode    int
	ResponseMessage string
	ResponseHeaders Header
	ResponseBody    []byte

	Info Info
}

// Info carries timing and error metadata for a Transaction.
type Info struct {
	StartTime time.Time
	StopTime  time.Time
	// Error is set only when the transaction ended abnormally. It is a
	// *TransportError.
	Error error
	// Extra holds caller supplied fields copied from Description.Info.
	Extra map[string]any
}

// Duration is the time from dispatch to resolution.
func (i Info) Duration() time.Duration {
	return i.StopTime.Sub(i.StartTime)
}

func (t *Transaction) BodyString() string {
	return string(t.ResponseBody)
}

func (t *Transaction) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(t.ResponseBody, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Header returns the first response header value matching key case-insensitively.
func (t *Transaction) Header(key string) string {
	return t.ResponseHeaders.Get(key)
}

func (t *Transaction) ContentType() string {
	return t.Header("Content-Type")
}

func (t *Transaction) IsJSON() bool {
	return strings.Contains(t.ContentType(), "application/json")
}

// Failed reports whether the transaction ended abnormally.
func (t *Transaction) Failed() bool {
	return t.Info.Error != nil
}

func (t *Transaction) IsSuccess() bool {
	return t.ResponseCode >= 200 && t.ResponseCode < 300
}

func (t *Transaction) IsRedirect() bool {
	return t.ResponseCode >= 300 && t.ResponseCode < 400
}

func (t *Transaction) IsClientError() bool {
	return t.ResponseCode >= 400 && t.ResponseCode < 500
}

func (t *Transaction) IsServerError() bool {
	return t.ResponseCode >= 500
}

func (t *Transaction) DurationMs() int64 {
	return t.Info.Duration().Milliseconds()
}
