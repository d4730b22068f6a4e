package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx() *http.Transaction {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &http.Transaction{
		Type:            http.DefaultType,
		Method:          "GET",
		URI:             "http://example.com/items",
		Version:         "HTTP/1.1",
		Headers:         http.Header{"Accept": {"*/*"}},
		ResponseVersion: "HTTP/1.1",
		ResponseCode:    404,
		ResponseMessage: "Not Found",
		ResponseHeaders: http.Header{"Content-Type": {"text/plain"}},
		ResponseBody:    []byte("nothing here"),
		Info:            http.Info{StartTime: start, StopTime: start.Add(12 * time.Millisecond)},
	}
}

func TestConsoleFormatter_Transaction(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatTransaction(sampleTx())

	out := buf.String()
	assert.Contains(t, out, "GET http://example.com/items")
	assert.Contains(t, out, "HTTP/1.1 404 Not Found")
	assert.Contains(t, out, "(12ms)")
	assert.Contains(t, out, "> Accept: */*")
	assert.Contains(t, out, "< Content-Type: text/plain")
	assert.Contains(t, out, "nothing here")
}

func TestConsoleFormatter_TransportError(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	tx := sampleTx()
	tx.ResponseCode = 0
	tx.ResponseBody = []byte{}
	tx.Info.Error = &http.TransportError{Cause: http.CauseTimeout, Phase: http.PhaseRequest}
	f.FormatTransaction(tx)

	assert.Contains(t, buf.String(), "timed out in request phase")
	assert.NotContains(t, buf.String(), "404")
}

func TestConsoleFormatter_Summary(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatSummary(&scheduler.Summary{
		TotalRequests: 3,
		SuccessCount:  2,
		ErrorCount:    1,
		StatusCounts:  map[int]int64{200: 2},
		P95:           5 * time.Millisecond,
	})
	f.FormatThresholds([]scheduler.ThresholdResult{{Name: "p95", Passed: true, Expected: "< 10ms", Actual: "5ms"}})

	out := buf.String()
	assert.Contains(t, out, "2 ok")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "200 x2")
	assert.Contains(t, out, "p95: 5ms (expected < 10ms)")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	tx := sampleTx()
	tx.Info.Error = &http.TransportError{Cause: http.CauseAborted, Phase: http.PhaseResponse}
	f.FormatTransaction(tx)
	f.FormatSummary(&scheduler.Summary{TotalRequests: 1, ErrorCount: 1, StatusCounts: map[int]int64{404: 1}})
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Transactions, 1)

	got := out.Transactions[0]
	assert.Equal(t, 404, got.ResponseCode)
	assert.Equal(t, "nothing here", got.ResponseBody)
	assert.Equal(t, 12.0, got.Info.Duration)
	require.NotNil(t, got.Info.Error)
	assert.Equal(t, "Aborted", got.Info.Error.Cause)
	assert.Equal(t, "response", got.Info.Error.Phase)
	require.NotNil(t, out.Summary)
	assert.Equal(t, int64(1), out.Summary.Status["404"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	f, err := New("json", &buf, false, true)
	require.NoError(t, err)
	_, ok := f.(Flushable)
	assert.True(t, ok)

	f, err = New("console", &buf, false, true)
	require.NoError(t, err)
	_, ok = f.(Flushable)
	assert.False(t, ok)

	_, err = New("xml", &buf, false, true)
	assert.Error(t, err)
}
