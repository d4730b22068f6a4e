package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/core/description"
	"github.com/abdul-hamid-achik/hitwire/packages/output"
	"github.com/abdul-hamid-achik/hitwire/packages/scheduler"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	requestFile        string
	requestVars        []string
	requestConcurrency int
	requestWatch       bool
	requestFail        bool
)

var requestCmd = &cobra.Command{
	Use:   "request [file]",
	Short: "Run the requests of a description file",
	Long: `Run every request in a YAML or JSON description file and print each
transaction in file order. Requests run concurrently up to --concurrency.

Variables referenced as {{name}} are taken from --var, then from the
file's vars block.`,
	Example: `  hitwire request api.yaml
  hitwire request -f api.yaml --var host=localhost:8080
  hitwire request api.yaml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: requestCommand,
}

func init() {
	requestCmd.Flags().StringVarP(&requestFile, "file", "f", "", "Description file")
	requestCmd.Flags().StringArrayVar(&requestVars, "var", nil, "Variable override name=value (repeatable)")
	requestCmd.Flags().IntVarP(&requestConcurrency, "concurrency", "c", getEnvInt("HITWIRE_CONCURRENCY", 0), "Maximum requests in flight (default from config, env: HITWIRE_CONCURRENCY)")
	requestCmd.Flags().BoolVarP(&requestWatch, "watch", "w", false, "Re-run when the file changes")
	requestCmd.Flags().BoolVar(&requestFail, "fail", false, "Exit with code 1 on a 4xx or 5xx status")
}

func requestCommand(cmd *cobra.Command, args []string) error {
	path := requestFile
	if len(args) == 1 {
		if path != "" {
			return exitWith(ExitUsageError, fmt.Errorf("give the description file either as an argument or with --file"))
		}
		path = args[0]
	}
	if path == "" {
		return exitWith(ExitUsageError, fmt.Errorf("a description file is required"))
	}

	vars, err := parseVars(requestVars)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	concurrency := requestConcurrency
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency
	}
	opts := []scheduler.Option{scheduler.WithConcurrency(concurrency)}
	if s.cfg.Rate > 0 {
		opts = append(opts, scheduler.WithRate(s.cfg.Rate))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	runFile := func() int {
		return runDescriptions(ctx, s, scheduler.New(s.client, opts...), path, vars)
	}

	code := runFile()
	if !requestWatch {
		if code != ExitSuccess {
			return exitWith(code, nil)
		}
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them, so the directory is watched.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(s.out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(s.out, "\n\nFile changed: %s\nRe-running requests...\n\n", event.Name)

				// JSON output accumulates, so each run gets a fresh formatter.
				if f, err := output.New(outputFlag, s.out, verboseFlag, s.cfg.GetNoColor()); err == nil {
					s.formatter = f
				}
				runFile()

				fmt.Fprintf(s.out, "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// runDescriptions loads path, performs its requests and returns the exit code
// for the run.
func runDescriptions(ctx context.Context, s *session, sched *scheduler.Scheduler, path string, vars map[string]string) int {
	defer s.flush()

	file, err := description.Load(path)
	if err != nil {
		s.formatter.FormatError(err)
		return ExitSetupError
	}
	descs, err := file.Descriptions(vars)
	if err != nil {
		s.formatter.FormatError(err)
		return ExitSetupError
	}
	for _, desc := range descs {
		s.cfg.Apply(desc)
	}

	s.logger.Debug().Str("file", path).Int("requests", len(descs)).Msg("running description file")

	code := ExitSuccess
	for _, result := range sched.RunAll(ctx, descs) {
		if result.Err != nil {
			s.formatter.FormatError(result.Err)
			code = max(code, ExitSetupError)
			continue
		}
		s.record(ctx, result.Transaction)
		s.formatter.FormatTransaction(result.Transaction)
		code = max(code, transactionExitCode(result.Transaction, requestFail))
	}
	return code
}

// parseVars reads repeated name=value flags.
func parseVars(values []string) (map[string]string, error) {
	vars := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, exitWith(ExitUsageError, fmt.Errorf("invalid variable %q, expected name=value", v))
		}
		vars[strings.TrimSpace(name)] = value
	}
	return vars, nil
}
