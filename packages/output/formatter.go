package output

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatTransaction(tx *http.Transaction)
	FormatSummary(s *scheduler.Summary)
	FormatThresholds(results []scheduler.ThresholdResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush() error
}

// New returns the formatter named by format ("console" or "json").
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
