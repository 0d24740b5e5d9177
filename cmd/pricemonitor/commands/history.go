package commands

import (
	"context"
	"fmt"
	"io"
	"pricemonitor/lib/serviceutil"
	"pricemonitor/lib/timezone"
	"pricemonitor/services/pricehistory"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var showRuns *bool
var runLimit *int

func init() {
	historyCmd.Flags().String("out-json", "", "The json history file, overrides the config.")
	historyCmd.Flags().String("run-log", "", "The sqlite run log to read with --runs, overrides the config.")
	showRuns = historyCmd.Flags().Bool("runs", false, "Lists the recent pipeline runs instead of the snapshots.")
	runLimit = historyCmd.Flags().Int("limit", 20, "The maximum amount of runs listed with --runs.")
	rootCmd.AddCommand(historyCmd)
}

// UnknownKeyError is returned when a product key is not in the history.
type UnknownKeyError struct {
	Key        string
	Suggestion string
}

func (e UnknownKeyError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("unknown product key %q", e.Key)
	}
	return fmt.Sprintf("unknown product key %q, did you mean %q?", e.Key, e.Suggestion)
}

func formatChange(series pricehistory.Series, i int) string {
	if i == 0 {
		return ""
	}
	change := series.Change(i)
	switch change.Sign() {
	case 1:
		return "+" + change.StringFixed(2)
	case -1:
		return change.StringFixed(2)
	}
	return "="
}

// renderHistory prints the history of every product, or only of
// `productKey` when it is not empty.
func renderHistory(ctx context.Context, config Config, productKey string, out io.Writer) error {
	store := pricehistory.NewStore(config.OutJson, config.OutCsv)
	history, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "no snapshots recorded in %s yet\n", config.OutJson)
		return nil
	}

	series := pricehistory.GroupByProduct(history)
	if productKey != "" {
		var known []string
		var found []pricehistory.Series
		for _, s := range series {
			known = append(known, s.ProductKey)
			if s.ProductKey == productKey {
				found = append(found, s)
			}
		}
		if len(found) == 0 {
			return UnknownKeyError{
				Key:        productKey,
				Suggestion: pricehistory.SuggestKey(productKey, known),
			}
		}
		series = found
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Product", "Title", "Scraped at", "Price", "Change", "Availability", "Condition"})
	for _, s := range series {
		for i, obs := range s.Observations {
			t.AppendRow(table.Row{
				obs.ProductKey,
				obs.Title,
				timezone.Format(obs.ScrapedAt),
				fmt.Sprintf("%s %s", obs.PriceText(), obs.Currency),
				formatChange(s, i),
				obs.Availability,
				obs.Condition,
			})
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Products", len(series)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Price", Align: text.AlignRight},
		{Name: "Change", Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func renderRuns(ctx context.Context, config Config, limit int, out io.Writer) error {
	ledger, err := openLedger(config)
	if err != nil {
		return err
	}
	if ledger == nil {
		return fmt.Errorf("no run log configured, set run_log in the config or pass --run-log")
	}
	defer ledger.Close()

	runs, err := ledger.Recent(ctx, limit)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Status", "Fetched", "Existing", "Merged", "Error"})
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			r.ID,
			timezone.Format(r.StartedAt),
			duration,
			r.Status,
			r.Fetched,
			r.Existing,
			r.Merged,
			r.Error,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history [--out-json <path>] [--runs [--run-log <path>] [--limit <n>]] [PRODUCT_KEY]",
	Short: "Prints the recorded price history, optionally for a single product.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := cfg
		overrideString(cmd, "out-json", &config.OutJson)
		overrideString(cmd, "run-log", &config.RunLog.File)

		if *showRuns {
			err := renderRuns(cmd.Context(), config, *runLimit, cmd.OutOrStdout())
			if err != nil {
				serviceutil.Fatal("failed to list runs", err)
			}
			return
		}

		productKey := ""
		if len(args) > 0 {
			productKey = args[0]
		}
		err := renderHistory(cmd.Context(), config, productKey, cmd.OutOrStdout())
		if err != nil {
			serviceutil.Fatal("failed to render history", err)
		}
	},
}
