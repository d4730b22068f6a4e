package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Transactions []JSONTransaction `json:"transactions"`
	Summary      *JSONSummary      `json:"summary,omitempty"`
	Errors       []string          `json:"errors,omitempty"`
	Time         string            `json:"time"`
}

// JSONTransaction mirrors http.Transaction
type JSONTransaction struct {
	Type            string              `json:"type"`
	Method          string              `json:"method"`
	URI             string              `json:"uri"`
	Version         string              `json:"version"`
	Headers         map[string][]string `json:"headers"`
	Body            string              `json:"body,omitempty"`
	ResponseVersion string              `json:"responseVersion"`
	ResponseCode    int                 `json:"responseCode"`
	ResponseMessage string              `json:"responseMessage"`
	ResponseHeaders map[string][]string `json:"responseHeaders"`
	ResponseBody    string              `json:"responseBody"`
	Info            JSONInfo            `json:"info"`
}

// JSONInfo mirrors http.Info
type JSONInfo struct {
	StartTime string         `json:"startTime"`
	StopTime  string         `json:"stopTime"`
	Duration  float64        `json:"duration"` // milliseconds
	Error     *JSONError     `json:"error,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// JSONError carries the cause of an abnormal end
type JSONError struct {
	Cause   string `json:"cause,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message"`
}

// JSONSummary represents a run summary
type JSONSummary struct {
	Total     int64            `json:"total"`
	Success   int64            `json:"success"`
	Errors    int64            `json:"errors"`
	Timeouts  int64            `json:"timeouts"`
	Aborted   int64            `json:"aborted"`
	RPS       float64          `json:"rps"`
	P50       float64          `json:"p50"`
	P95       float64          `json:"p95"`
	P99       float64          `json:"p99"`
	Max       float64          `json:"max"`
	Status    map[string]int64 `json:"status,omitempty"`
	Duration  float64          `json:"duration"`
	Threshold []JSONThreshold  `json:"thresholds,omitempty"`
}

type JSONThreshold struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// JSONFormatter accumulates transactions and writes them as one JSON document
type JSONFormatter struct {
	writer       io.Writer
	transactions []JSONTransaction
	summary      *JSONSummary
	errors       []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:       os.Stdout,
		transactions: make([]JSONTransaction, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// ToJSON converts tx into its JSON form.
func ToJSON(tx *http.Transaction) JSONTransaction {
	out := JSONTransaction{
		Type:            tx.Type,
		Method:          tx.Method,
		URI:             tx.URI,
		Version:         tx.Version,
		Headers:         tx.Headers,
		Body:            string(tx.Body),
		ResponseVersion: tx.ResponseVersion,
		ResponseCode:    tx.ResponseCode,
		ResponseMessage: tx.ResponseMessage,
		ResponseHeaders: tx.ResponseHeaders,
		ResponseBody:    tx.BodyString(),
		Info: JSONInfo{
			StartTime: tx.Info.StartTime.Format(time.RFC3339Nano),
			StopTime:  tx.Info.StopTime.Format(time.RFC3339Nano),
			Duration:  float64(tx.Info.Duration().Microseconds()) / 1000,
			Extra:     tx.Info.Extra,
		},
	}
	if out.Headers == nil {
		out.Headers = map[string][]string{}
	}
	if out.ResponseHeaders == nil {
		out.ResponseHeaders = map[string][]string{}
	}

	if err := tx.Info.Error; err != nil {
		je := &JSONError{Message: err.Error()}
		var te *http.TransportError
		if errors.As(err, &te) {
			je.Cause, je.Phase = string(te.Cause), string(te.Phase)
		}
		out.Info.Error = je
	}
	return out
}

func (f *JSONFormatter) FormatTransaction(tx *http.Transaction) {
	f.transactions = append(f.transactions, ToJSON(tx))
}

func (f *JSONFormatter) FormatSummary(s *scheduler.Summary) {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

	summary := &JSONSummary{
		Total:    s.TotalRequests,
		Success:  s.SuccessCount,
		Errors:   s.ErrorCount,
		Timeouts: s.TimeoutCount,
		Aborted:  s.AbortedCount,
		RPS:      s.RPS,
		P50:      ms(s.P50),
		P95:      ms(s.P95),
		P99:      ms(s.P99),
		Max:      ms(s.Max),
		Duration: ms(s.Duration),
	}
	if len(s.StatusCounts) > 0 {
		summary.Status = make(map[string]int64, len(s.StatusCounts))
		for code, n := range s.StatusCounts {
			summary.Status[strconv.Itoa(code)] = n
		}
	}
	f.summary = summary
}

func (f *JSONFormatter) FormatThresholds(results []scheduler.ThresholdResult) {
	if f.summary == nil {
		f.summary = &JSONSummary{}
	}
	for _, r := range results {
		f.summary.Threshold = append(f.summary.Threshold, JSONThreshold(r))
	}
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	output := JSONOutput{
		Transactions: f.transactions,
		Summary:      f.summary,
		Errors:       f.errors,
		Time:         time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
