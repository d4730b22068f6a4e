package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/journal"
	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled transactions",
	Long: `List the most recent transactions recorded in the journal.

The journal is a SQLite file set with --journal, HITWIRE_JOURNAL or the
journal key of the config file.`,
	Args: cobra.NoArgs,
	RunE: historyListCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journaled transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  historyShowCommand,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journaled transactions older than a duration",
	Args:  cobra.NoArgs,
	RunE:  historyPruneCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of transactions to list")
	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 7*24*time.Hour, "Delete transactions started before now minus this duration")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func journalSession(cmd *cobra.Command) (*session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, exitWith(ExitConfigError, errors.New("no journal configured, set --journal or HITWIRE_JOURNAL"))
	}
	return s, nil
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	s, err := journalSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.journal.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No transactions recorded.")
		return nil
	}

	for _, e := range entries {
		tx := e.Transaction
		outcome := fmt.Sprintf("%d", tx.ResponseCode)
		if e.Cause != "" {
			outcome = string(e.Cause)
		}
		fmt.Fprintf(s.out, "%s  %s  %-7s %-8s %s (%s)\n",
			e.ID,
			tx.Info.StartTime.Local().Format(time.DateTime),
			tx.Method,
			outcome,
			tx.URI,
			tx.Info.Duration().Round(time.Millisecond),
		)
	}
	return nil
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	s, err := journalSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, err := s.journal.Get(cmd.Context(), args[0])
	if errors.Is(err, journal.ErrNotFound) {
		return exitWith(ExitUsageError, fmt.Errorf("no transaction with id %s", args[0]))
	}
	if err != nil {
		return err
	}

	s.formatter.FormatTransaction(entry.Transaction)
	s.flush()
	return nil
}

func historyPruneCommand(cmd *cobra.Command, args []string) error {
	s, err := journalSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.journal.Prune(cmd.Context(), time.Now().Add(-historyOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted %d transaction(s).\n", n)
	return nil
}
