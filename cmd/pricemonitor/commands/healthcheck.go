package commands

import (
	"fmt"
	"io"
	"pricemonitor/lib/timezone"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

func healthcheck(out io.Writer, now time.Time) {
	fmt.Fprintf(out, "[ok] pricemonitor CLI is working | utc=%s\n", timezone.Format(now))
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Checks that the CLI starts.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		healthcheck(cmd.OutOrStdout(), timezone.Now())
	},
}
