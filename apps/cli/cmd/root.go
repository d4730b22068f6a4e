package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	envFileFlag  string
	logLevelFlag string
	noColorFlag  bool
	outputFlag   string
	verboseFlag  bool
	journalFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "hitwire",
	Short: "Single HTTP exchanges, fully accounted for.",
	Long: `hitwire performs HTTP/1.1 requests over raw connections and reports
every outcome as a transaction: status, headers, decoded body, timing,
and why it ended if it did not end normally.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitUsageError)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("HITWIRE_CONFIG", ""), "Path to config file (env: HITWIRE_CONFIG)")
	flags.StringVar(&envFileFlag, "env-file", getEnvString("HITWIRE_ENV_FILE", ""), "Path to .env file loaded before HITWIRE_* variables are read (env: HITWIRE_ENV_FILE)")
	flags.StringVar(&logLevelFlag, "log-level", getEnvString("HITWIRE_LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error, off (env: HITWIRE_LOG_LEVEL)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HITWIRE_NO_COLOR", false), "Disable colored output (env: HITWIRE_NO_COLOR)")
	flags.StringVarP(&outputFlag, "output", "o", getEnvString("HITWIRE_OUTPUT", "console"), "Output format: console, json (env: HITWIRE_OUTPUT)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Show request and response headers and the full body")
	flags.StringVar(&journalFlag, "journal", getEnvString("HITWIRE_JOURNAL", ""), "SQLite journal to record transactions in (env: HITWIRE_JOURNAL)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
