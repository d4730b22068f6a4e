package scheduler

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/hitwire/packages/http"
)

// latencies are kept in microseconds, 1us to 60s
const maxLatencyUs = 60_000_000

// Metrics collects and aggregates transaction outcomes
type Metrics struct {
	mu sync.RWMutex

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	errorRequests   atomic.Int64
	timeoutRequests atomic.Int64
	abortedRequests atomic.Int64

	histogram *hdrhistogram.Histogram

	requestMetrics map[string]*RequestMetrics
	statusCounts   map[int]int64

	startTime time.Time
	endTime   time.Time
}

// RequestMetrics holds metrics for one method and URI
type RequestMetrics struct {
	Name      string
	Total     atomic.Int64
	Success   atomic.Int64
	Errors    atomic.Int64
	Histogram *hdrhistogram.Histogram
	mu        sync.Mutex
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram:      hdrhistogram.New(1, maxLatencyUs, 3),
		requestMetrics: make(map[string]*RequestMetrics),
		statusCounts:   make(map[int]int64),
	}
}

// Start marks the beginning of a run
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.endTime = time.Time{}
	m.mu.Unlock()
}

// Stop marks the end of a run
func (m *Metrics) Stop() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

// Record classifies a finished transaction. Any Info.Error counts as an
// error; timeouts and premature closes are also counted on their own.
func (m *Metrics) Record(tx *http.Transaction) {
	m.totalRequests.Add(1)

	err := tx.Info.Error
	switch {
	case err == nil:
		m.successRequests.Add(1)
	case errors.Is(err, http.ErrTimeout):
		m.timeoutRequests.Add(1)
		m.errorRequests.Add(1)
	case errors.Is(err, http.ErrAborted):
		m.abortedRequests.Add(1)
		m.errorRequests.Add(1)
	default:
		m.errorRequests.Add(1)
	}

	latencyUs := clampLatency(tx.Info.Duration())

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	if tx.ResponseCode > 0 {
		m.statusCounts[tx.ResponseCode]++
	}
	rm := m.requestMetricsLocked(tx.Method + " " + tx.URI)
	m.mu.Unlock()

	rm.Total.Add(1)
	if err != nil {
		rm.Errors.Add(1)
	} else {
		rm.Success.Add(1)
	}
	rm.mu.Lock()
	_ = rm.Histogram.RecordValue(latencyUs)
	rm.mu.Unlock()
}

// RecordSetupError counts a description that never reached the network.
func (m *Metrics) RecordSetupError(name string) {
	m.totalRequests.Add(1)
	m.errorRequests.Add(1)

	if name != "" {
		m.mu.Lock()
		rm := m.requestMetricsLocked(name)
		m.mu.Unlock()

		rm.Total.Add(1)
		rm.Errors.Add(1)
	}
}

func (m *Metrics) requestMetricsLocked(name string) *RequestMetrics {
	rm, ok := m.requestMetrics[name]
	if !ok {
		rm = &RequestMetrics{
			Name:      name,
			Histogram: hdrhistogram.New(1, maxLatencyUs, 3),
		}
		m.requestMetrics[name] = rm
	}
	return rm
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

// Summary is the aggregate of a run
type Summary struct {
	Duration      time.Duration
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	TimeoutCount  int64
	AbortedCount  int64

	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	StatusCounts     map[int]int64
	RequestBreakdown map[string]*RequestSummary
}

// RequestSummary holds summary for a specific request
type RequestSummary struct {
	Name    string
	Total   int64
	Success int64
	Errors  int64
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
	Mean    time.Duration
}

func usToDuration(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.totalRequests.Load()
	success := m.successRequests.Load()
	errs := m.errorRequests.Load()

	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(total) / duration.Seconds()
	}

	successRate := float64(0)
	errorRate := float64(0)
	if total > 0 {
		successRate = float64(success) / float64(total)
		errorRate = float64(errs) / float64(total)
	}

	summary := &Summary{
		Duration:      duration,
		TotalRequests: total,
		SuccessCount:  success,
		ErrorCount:    errs,
		TimeoutCount:  m.timeoutRequests.Load(),
		AbortedCount:  m.abortedRequests.Load(),
		RPS:           rps,
		SuccessRate:   successRate,
		ErrorRate:     errorRate,
		P50:           usToDuration(m.histogram.ValueAtQuantile(50)),
		P95:           usToDuration(m.histogram.ValueAtQuantile(95)),
		P99:           usToDuration(m.histogram.ValueAtQuantile(99)),
		Min:           usToDuration(m.histogram.Min()),
		Max:           usToDuration(m.histogram.Max()),
		Mean:          usToDuration(int64(m.histogram.Mean())),
		StdDev:        usToDuration(int64(m.histogram.StdDev())),
		StatusCounts:  make(map[int]int64, len(m.statusCounts)),
	}
	for code, n := range m.statusCounts {
		summary.StatusCounts[code] = n
	}

	summary.RequestBreakdown = make(map[string]*RequestSummary)
	for name, rm := range m.requestMetrics {
		rm.mu.Lock()
		summary.RequestBreakdown[name] = &RequestSummary{
			Name:    name,
			Total:   rm.Total.Load(),
			Success: rm.Success.Load(),
			Errors:  rm.Errors.Load(),
			P50:     usToDuration(rm.Histogram.ValueAtQuantile(50)),
			P95:     usToDuration(rm.Histogram.ValueAtQuantile(95)),
			P99:     usToDuration(rm.Histogram.ValueAtQuantile(99)),
			Mean:    usToDuration(int64(rm.Histogram.Mean())),
		}
		rm.mu.Unlock()
	}

	return summary
}

// Evaluate checks t against the summary.
func (s *Summary) Evaluate(t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit > 0 {
			results = append(results, ThresholdResult{
				Name:     name,
				Passed:   actual <= limit,
				Expected: "< " + limit.String(),
				Actual:   actual.String(),
			})
		}
	}
	latency("p95", t.P95, s.P95)
	latency("p99", t.P99, s.P99)
	latency("max latency", t.MaxLatency, s.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "error rate",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: formatPercent(t.ErrorRate),
			Actual:   formatPercent(s.ErrorRate),
		})
	}

	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "min RPS",
			Passed:   s.RPS >= t.MinRPS,
			Expected: "> " + formatFloat(t.MinRPS),
			Actual:   formatFloat(s.RPS),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
