package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/capture"
	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/spf13/cobra"
)

var (
	fetchMethod       string
	fetchHeaders      []string
	fetchData         string
	fetchDataFile     string
	fetchTimeout      time.Duration
	fetchNoTimeout    bool
	fetchFollow       bool
	fetchNoDownload   bool
	fetchInsecure     bool
	fetchRawHeaders   bool
	fetchSelect       string
	fetchType         string
	fetchFailOnStatus bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <uri>",
	Short: "Perform a single request",
	Long: `Perform one HTTP or HTTPS request and print the resulting transaction.

A transaction that ends in a timeout, abort or network error is still
printed, with whatever was received, and exits with code 4.`,
	Example: `  hitwire fetch https://example.com
  hitwire fetch -X POST -H 'Content-Type: application/json' -d '{"a":1}' http://localhost:8080/items
  hitwire fetch --select items.0.id http://localhost:8080/items
  hitwire fetch -L --timeout 5s http://example.com/old`,
	Args: cobra.ExactArgs(1),
	RunE: fetchCommand,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", "GET", "Request method")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", nil, "Request header \"Name: value\" (repeatable)")
	fetchCmd.Flags().StringVarP(&fetchData, "data", "d", "", "Request body")
	fetchCmd.Flags().StringVar(&fetchDataFile, "data-file", "", "Read the request body from a file")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "Connect and data-idle timeout (default from config)")
	fetchCmd.Flags().BoolVar(&fetchNoTimeout, "no-timeout", false, "Disable connect and data-idle timeouts")
	fetchCmd.Flags().BoolVarP(&fetchFollow, "follow", "L", getEnvBool("HITWIRE_FOLLOW_REDIRECTS", false), "Follow redirects (env: HITWIRE_FOLLOW_REDIRECTS)")
	fetchCmd.Flags().BoolVar(&fetchNoDownload, "no-download", false, "Stop after the response head")
	fetchCmd.Flags().BoolVarP(&fetchInsecure, "insecure", "k", false, "Skip TLS certificate verification")
	fetchCmd.Flags().BoolVar(&fetchRawHeaders, "raw-headers", false, "Send header names exactly as given")
	fetchCmd.Flags().StringVar(&fetchSelect, "select", "", "Print only one value: a gjson body path, or header:<name>, status, duration")
	fetchCmd.Flags().StringVar(&fetchType, "type", "", "Transaction type label")
	fetchCmd.Flags().BoolVar(&fetchFailOnStatus, "fail", false, "Exit with code 1 on a 4xx or 5xx status")

	fetchCmd.MarkFlagsMutuallyExclusive("data", "data-file")
	fetchCmd.MarkFlagsMutuallyExclusive("timeout", "no-timeout")
}

func fetchCommand(cmd *cobra.Command, args []string) error {
	headers, err := parseHeaders(fetchHeaders)
	if err != nil {
		return err
	}

	body := []byte(fetchData)
	if fetchDataFile != "" {
		body, err = os.ReadFile(fetchDataFile)
		if err != nil {
			return exitWith(ExitUsageError, fmt.Errorf("reading request body: %w", err))
		}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	desc := &http.Description{
		Type:    fetchType,
		Method:  fetchMethod,
		URI:     args[0],
		Headers: headers,
		Body:    body,
		Follow:  fetchFollow,
	}
	switch {
	case fetchNoTimeout:
		desc.Timeout = -1
	case fetchTimeout > 0:
		desc.Timeout = fetchTimeout
	}
	if fetchNoDownload {
		desc.Download = http.Bool(false)
	}
	if fetchInsecure {
		desc.RejectUnauthorized = http.Bool(false)
	}
	if fetchRawHeaders {
		desc.CorrectHeaders = http.Bool(false)
	}
	s.cfg.Apply(desc)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	tx, err := s.client.Request(ctx, desc)
	if err != nil {
		return exitWith(ExitSetupError, err)
	}
	s.record(ctx, tx)

	if fetchSelect != "" {
		value, err := capture.NewExtractor(tx).Raw(capture.Parse(fetchSelect))
		if err != nil {
			return exitWith(ExitCheckFailure, err)
		}
		fmt.Fprintln(s.out, value)
	} else {
		s.formatter.FormatTransaction(tx)
		s.flush()
	}

	if code := transactionExitCode(tx, fetchFailOnStatus); code != ExitSuccess {
		return exitWith(code, nil)
	}
	return nil
}
