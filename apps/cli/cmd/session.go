package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abdul-hamid-achik/hitwire/packages/core/config"
	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/journal"
	"github.com/abdul-hamid-achik/hitwire/packages/observability"
	"github.com/abdul-hamid-achik/hitwire/packages/output"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// session is the state every command builds from config, env and flags.
type session struct {
	cfg       *config.Config
	logger    zerolog.Logger
	client    *http.Client
	formatter output.Formatter
	journal   *journal.Journal
	out       io.Writer
}

// newSession resolves configuration in order: defaults, config file,
// HITWIRE_* environment, then flags set on the command line.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, exitWith(ExitConfigError, err)
	}
	if envFileFlag != "" {
		cfg.EnvFile = envFileFlag
	}
	cfg, err = cfg.ApplyEnv()
	if err != nil {
		return nil, exitWith(ExitConfigError, err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("no-color") {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	if flags.Changed("journal") {
		cfg.Journal = journalFlag
	}

	logger := observability.NewConsoleLogger(cfg.LogLevel, cmd.ErrOrStderr(), cfg.GetNoColor())

	formatter, err := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag, cfg.GetNoColor())
	if err != nil {
		return nil, exitWith(ExitUsageError, err)
	}

	s := &session{
		cfg:       cfg,
		logger:    logger,
		client:    http.NewClient(cfg.ClientOptions(logger)...),
		formatter: formatter,
		out:       cmd.OutOrStdout(),
	}

	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, exitWith(ExitConfigError, fmt.Errorf("opening journal: %w", err))
		}
		s.journal = j
	}

	logger.Debug().
		Str("environment", cfg.Environment).
		Int("max_redirects", cfg.MaxRedirects).
		Str("journal", cfg.Journal).
		Msg("session ready")
	return s, nil
}

// record journals tx when a journal is configured. Failures are logged, not
// returned. Aborted transactions arrive with ctx already cancelled and are
// still recorded.
func (s *session) record(ctx context.Context, tx *http.Transaction) {
	if s.journal == nil || tx == nil {
		return
	}
	id, err := s.journal.Record(context.WithoutCancel(ctx), tx)
	if err != nil {
		s.logger.Warn().Err(err).Str("uri", tx.URI).Msg("failed to journal transaction")
		return
	}
	s.logger.Debug().Str("id", id).Msg("transaction journaled")
}

func (s *session) flush() {
	if f, ok := s.formatter.(output.Flushable); ok {
		if err := f.Flush(); err != nil {
			s.logger.Error().Err(err).Msg("failed to flush output")
		}
	}
}

func (s *session) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// parseHeaders reads repeated "Name: value" flags.
func parseHeaders(values []string) (http.Header, error) {
	h := http.Header{}
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, exitWith(ExitUsageError, fmt.Errorf("invalid header %q, expected \"Name: value\"", v))
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

// transactionExitCode maps a finished transaction to the process exit code.
func transactionExitCode(tx *http.Transaction, failOnStatus bool) int {
	switch {
	case tx.Failed():
		return ExitTransportError
	case failOnStatus && tx.ResponseCode >= 400:
		return ExitCheckFailure
	}
	return ExitSuccess
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. A cancelled
// context aborts in-flight transactions.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
