// Package scheduler queues transactions onto a client with bounded
// concurrency and an optional request rate, and aggregates their latencies.
package scheduler

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is the number of in-flight transactions when none is set.
const DefaultConcurrency = 10

// Scheduler limits how many transactions run at once and how fast new ones
// start. It is safe for concurrent use.
type Scheduler struct {
	client  *http.Client
	limiter *rate.Limiter
	sem     chan struct{} // semaphore for max concurrency
	metrics *Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency bounds in-flight transactions. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithRate caps the start rate in transactions per second. Zero means unlimited.
func WithRate(perSecond float64) Option {
	return func(s *Scheduler) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithMetrics records every finished transaction into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates a scheduler dispatching through client.
func New(client *http.Client, opts ...Option) *Scheduler {
	if client == nil {
		client = http.NewClient()
	}
	s := &Scheduler{
		client:  client,
		sem:     make(chan struct{}, DefaultConcurrency),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the collector the scheduler records into.
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

// Wait blocks on the rate limiter, if any.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter != nil {
		return s.limiter.Wait(ctx)
	}
	return nil
}

// Acquire acquires a slot from the concurrency semaphore
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot back to the semaphore
func (s *Scheduler) Release() {
	<-s.sem
}

// Request queues desc and performs it once a slot is free. Errors are those of
// http.Client.Request, plus the context error if ctx ends while queued.
func (s *Scheduler) Request(ctx context.Context, desc *http.Description) (*http.Transaction, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	if err := s.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.Release()

	tx, err := s.client.Request(ctx, desc)
	if err != nil {
		s.metrics.RecordSetupError(nameOf(desc))
		return nil, err
	}
	s.metrics.Record(tx)
	return tx, nil
}

// Fetch queues a GET of uri.
func (s *Scheduler) Fetch(ctx context.Context, uri string, headers http.Header, opts ...http.RequestOption) (*http.Transaction, error) {
	desc := &http.Description{Method: "GET", URI: uri, Headers: headers}
	for _, opt := range opts {
		opt(desc)
	}
	return s.Request(ctx, desc)
}

// Result pairs a queued description with its outcome.
type Result struct {
	Transaction *http.Transaction
	Err         error
}

// RunAll performs every description and returns the results in input order.
func (s *Scheduler) RunAll(ctx context.Context, descs []*http.Description) []Result {
	results := make([]Result, len(descs))

	var wg sync.WaitGroup
	for i, desc := range descs {
		i, desc := i, desc
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Request(ctx, desc)
			results[i] = Result{Transaction: tx, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// Repeat performs desc n times and returns the metrics summary of the run.
func (s *Scheduler) Repeat(ctx context.Context, desc *http.Description, n int) *Summary {
	descs := make([]*http.Description, n)
	for i := range descs {
		descs[i] = desc
	}

	s.metrics.Start()
	s.RunAll(ctx, descs)
	s.metrics.Stop()
	return s.metrics.GetSummary()
}

func nameOf(desc *http.Description) string {
	if desc == nil {
		return ""
	}
	method := desc.Method
	if method == "" {
		method = "GET"
	}
	return method + " " + desc.URI
}
