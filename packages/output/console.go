package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
	"github.com/fatih/color"
)

// maxBodyLen bounds the body printed in non-verbose mode
const maxBodyLen = 2048

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints request and response headers and the full body.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgRed)
	case code >= 300:
		return color.New(color.FgYellow)
	case code >= 200:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}

func (f *ConsoleFormatter) FormatTransaction(tx *http.Transaction) {
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(tx.Method), tx.URI)

	if f.verbose {
		for _, line := range headerLines(tx.Headers) {
			fmt.Fprintf(f.writer, "%s %s\n", faint(">"), line)
		}
	}

	if tx.ResponseCode > 0 {
		status := fmt.Sprintf("%s %d %s", tx.ResponseVersion, tx.ResponseCode, tx.ResponseMessage)
		fmt.Fprintf(f.writer, "%s %s\n", statusColor(tx.ResponseCode).Sprint(status), cyan(fmt.Sprintf("(%dms)", tx.DurationMs())))
	}

	if tx.Info.Error != nil {
		fmt.Fprintf(f.writer, "%s %s %s\n", red("x"), red(describeError(tx.Info.Error)), cyan(fmt.Sprintf("(%dms)", tx.DurationMs())))
	}

	if f.verbose {
		for _, line := range headerLines(tx.ResponseHeaders) {
			fmt.Fprintf(f.writer, "%s %s\n", faint("<"), line)
		}
	}

	if len(tx.ResponseBody) > 0 {
		body := tx.BodyString()
		if !f.verbose && len(body) > maxBodyLen {
			body = body[:maxBodyLen] + faint(fmt.Sprintf("... (%d more bytes)", len(body)-maxBodyLen))
		}
		fmt.Fprintf(f.writer, "\n%s\n", body)
	}
}

func (f *ConsoleFormatter) FormatSummary(s *scheduler.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Summary"))
	fmt.Fprintf(f.writer, "Requests: %s", green(fmt.Sprintf("%d ok", s.SuccessCount)))
	if s.ErrorCount > 0 {
		fmt.Fprintf(f.writer, ", %s", red(fmt.Sprintf("%d failed", s.ErrorCount)))
	}
	if s.TimeoutCount > 0 {
		fmt.Fprintf(f.writer, ", %s", yellow(fmt.Sprintf("%d timed out", s.TimeoutCount)))
	}
	if s.AbortedCount > 0 {
		fmt.Fprintf(f.writer, ", %s", yellow(fmt.Sprintf("%d aborted", s.AbortedCount)))
	}
	fmt.Fprintf(f.writer, ", %d total\n", s.TotalRequests)
	fmt.Fprintf(f.writer, "Rate:     %.2f/s\n", s.RPS)
	fmt.Fprintf(f.writer, "Latency:  p50 %s  p95 %s  p99 %s  max %s\n",
		round(s.P50), round(s.P95), round(s.P99), round(s.Max))

	if len(s.StatusCounts) > 0 {
		codes := make([]int, 0, len(s.StatusCounts))
		for code := range s.StatusCounts {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, statusColor(code).Sprintf("%d", code)+fmt.Sprintf(" x%d", s.StatusCounts[code]))
		}
		fmt.Fprintf(f.writer, "Status:   %s\n", strings.Join(parts, "  "))
	}
	fmt.Fprintf(f.writer, "Time:     %dms\n", s.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatThresholds(results []scheduler.ThresholdResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, r := range results {
		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s: %s (expected %s)\n", symbol, r.Name, r.Actual, r.Expected)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitwire"), version)
}

func headerLines(h http.Header) []string {
	lines := make([]string, 0, len(h))
	for k, vv := range h {
		for _, v := range vv {
			lines = append(lines, k+": "+v)
		}
	}
	sort.Strings(lines)
	return lines
}

func describeError(err error) string {
	var te *http.TransportError
	if errors.As(err, &te) {
		switch te.Cause {
		case http.CauseTimeout:
			return fmt.Sprintf("timed out in %s phase", te.Phase)
		case http.CauseAborted:
			return "connection closed before the response was complete"
		case http.CauseAbort:
			return "cancelled"
		}
	}
	return err.Error()
}

func round(d time.Duration) time.Duration {
	return d.Round(100 * time.Microsecond)
}
