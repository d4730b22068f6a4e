package cmd

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		schemes := http.DefaultRegistry().Schemes()
		sort.Strings(schemes)

		fmt.Fprintf(cmd.OutOrStdout(), "hitwire version %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(cmd.OutOrStdout(), "Schemes: %s\n", strings.Join(schemes, ", "))
	},
}
