package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
	"github.com/spf13/cobra"
)

var (
	benchRequests    int
	benchConcurrency int
	benchRate        float64
	benchThreshold   string
	benchMethod      string
	benchHeaders     []string
	benchData        string
	benchFollow      bool
	benchInsecure    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench <uri>",
	Short: "Repeat a request and report latency percentiles",
	Long: `Send the same request many times through the scheduler and print a
summary of latencies, outcomes and status codes.

Thresholds make the run fail with exit code 1 when they are not met:
  p95<200ms      95th percentile latency
  p99<500ms      99th percentile latency
  max<1s         maximum latency
  errors<0.1%    share of transactions that did not complete
  rps>100        minimum requests per second`,
	Example: `  hitwire bench -n 500 -c 20 http://localhost:8080/health
  hitwire bench -n 1000 --rate 50 --threshold "p95<200ms,errors<1%" http://localhost:8080/items`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

func init() {
	benchCmd.Flags().IntVarP(&benchRequests, "requests", "n", 100, "Number of requests")
	benchCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", getEnvInt("HITWIRE_CONCURRENCY", 0), "Maximum requests in flight (default from config, env: HITWIRE_CONCURRENCY)")
	benchCmd.Flags().Float64VarP(&benchRate, "rate", "r", 0, "Maximum requests started per second (0 = unlimited)")
	benchCmd.Flags().StringVarP(&benchThreshold, "threshold", "t", "", "Pass/fail thresholds, e.g. \"p95<200ms,errors<1%\"")
	benchCmd.Flags().StringVarP(&benchMethod, "method", "X", "GET", "Request method")
	benchCmd.Flags().StringArrayVarP(&benchHeaders, "header", "H", nil, "Request header \"Name: value\" (repeatable)")
	benchCmd.Flags().StringVarP(&benchData, "data", "d", "", "Request body")
	benchCmd.Flags().BoolVarP(&benchFollow, "follow", "L", false, "Follow redirects")
	benchCmd.Flags().BoolVarP(&benchInsecure, "insecure", "k", false, "Skip TLS certificate verification")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	if benchRequests < 1 {
		return exitWith(ExitUsageError, fmt.Errorf("--requests must be at least 1"))
	}

	thresholds, err := scheduler.ParseThresholds(benchThreshold)
	if err != nil {
		return exitWith(ExitUsageError, fmt.Errorf("invalid threshold: %w", err))
	}

	headers, err := parseHeaders(benchHeaders)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	desc := &http.Description{
		Method:  benchMethod,
		URI:     args[0],
		Headers: headers,
		Body:    []byte(benchData),
		Follow:  benchFollow,
	}
	if benchInsecure {
		desc.RejectUnauthorized = http.Bool(false)
	}
	s.cfg.Apply(desc)

	// Validate once up front so a bad URI is a usage error, not n failures.
	if _, _, err := http.Build(desc); err != nil {
		return exitWith(ExitSetupError, err)
	}

	concurrency := benchConcurrency
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency
	}
	rate := benchRate
	if rate <= 0 {
		rate = s.cfg.Rate
	}
	opts := []scheduler.Option{scheduler.WithConcurrency(concurrency)}
	if rate > 0 {
		opts = append(opts, scheduler.WithRate(rate))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s.logger.Info().
		Str("uri", desc.URI).
		Int("requests", benchRequests).
		Int("concurrency", concurrency).
		Float64("rate", rate).
		Msg("starting bench")

	s.formatter.FormatHeader(version)
	summary := scheduler.New(s.client, opts...).Repeat(ctx, desc, benchRequests)
	s.formatter.FormatSummary(summary)

	code := ExitSuccess
	if thresholds.HasThresholds() {
		results := summary.Evaluate(thresholds)
		s.formatter.FormatThresholds(results)
		if !scheduler.Passed(results) {
			code = ExitCheckFailure
		}
	}
	s.flush()

	if code != ExitSuccess {
		return exitWith(code, nil)
	}
	return nil
}
