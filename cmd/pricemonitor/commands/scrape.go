package commands

import (
	"context"
	"encoding/json"
	"io"
	"pricemonitor/lib/serviceutil"
	"pricemonitor/lib/snapshot"

	"github.com/spf13/cobra"
)

func init() {
	scrapeCmd.Flags().String("base-url", "", "The catalog page to fetch, overrides the config.")
	rootCmd.AddCommand(scrapeCmd)
}

// scrape fetches the catalog once and prints what it found without
// touching the history.
func scrape(ctx context.Context, config Config, out io.Writer) ([]snapshot.ProductSnapshot, error) {
	source, err := newSource(config)
	if err != nil {
		return nil, err
	}
	snapshots, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []snapshot.ProductSnapshot{}
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err = enc.Encode(snapshots)
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--base-url <url>]",
	Short: "Fetches the catalog and prints the snapshots as json, nothing is persisted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := cfg
		overrideString(cmd, "base-url", &config.BaseUrl)

		_, err := scrape(cmd.Context(), config, cmd.OutOrStdout())
		if err != nil {
			serviceutil.Fatal("failed to scrape catalog", err)
		}
	},
}
