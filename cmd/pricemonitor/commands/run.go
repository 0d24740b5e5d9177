package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"pricemonitor/lib/serviceutil"
	"pricemonitor/lib/telemetry"
	"pricemonitor/services/pricehistory"

	"github.com/spf13/cobra"
)

func init() {
	runCmd.Flags().String("base-url", "", "The catalog page to fetch, overrides the config.")
	runCmd.Flags().String("out-json", "", "The json history file, overrides the config.")
	runCmd.Flags().String("out-csv", "", "The csv export, overrides the config.")
	runCmd.Flags().String("run-log", "", "A sqlite file to record the run in, overrides the config.")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context, config Config, out io.Writer) (pricehistory.Result, error) {
	source, err := newSource(config)
	if err != nil {
		return pricehistory.Result{}, err
	}
	ledger, err := openLedger(config)
	if err != nil {
		return pricehistory.Result{}, err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	store := pricehistory.NewStore(config.OutJson, config.OutCsv)
	pipeline := pricehistory.NewPipeline(source, store, pricehistory.Options{
		Ledger:  ledger,
		BaseUrl: source.BaseUrl().String(),
	})

	res, err := pipeline.Run(ctx)
	if err != nil {
		return res, err
	}

	fmt.Fprintf(
		out, "run %s: fetched=%d existing=%d merged=%d added=%d\n",
		res.RunID, len(res.Fetched), len(res.Existing), len(res.Merged), res.Added(),
	)
	return res, nil
}

var runCmd = &cobra.Command{
	Use:   "run [--base-url <url>] [--out-json <path>] [--out-csv <path>] [--run-log <path>]",
	Short: "Fetches the catalog, merges it into the history and persists json and csv.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := cfg
		overrideString(cmd, "base-url", &config.BaseUrl)
		overrideString(cmd, "out-json", &config.OutJson)
		overrideString(cmd, "out-csv", &config.OutCsv)
		overrideString(cmd, "run-log", &config.RunLog.File)

		_, err := runPipeline(cmd.Context(), config, cmd.OutOrStdout())
		if err != nil {
			serviceutil.Fatal("pipeline run failed", err)
		}

		stats := telemetry.RecordPerfStats(cmd.Context())
		slog.Debug(
			"process stats",
			"cpu_percent", stats.CpuPercent,
			"allocated_mb", stats.AllocatedMb,
			"rss_mb", stats.RssMb,
			"goroutines", stats.Goroutines,
		)
	},
}
