package commands

import (
	"context"
	"fmt"
	"io"
	"pricemonitor/lib/serviceutil"
	"pricemonitor/services/pricehistory"

	"github.com/spf13/cobra"
)

func init() {
	verifyCmd.Flags().String("out-json", "", "The json history file, overrides the config.")
	verifyCmd.Flags().String("out-csv", "", "The csv export, overrides the config.")
	rootCmd.AddCommand(verifyCmd)
}

func verify(ctx context.Context, config Config, out io.Writer) error {
	store := pricehistory.NewStore(config.OutJson, config.OutCsv)
	err := store.Verify(ctx)
	if err != nil {
		return err
	}
	history, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[ok] %d records, %s and %s agree\n", len(history), config.OutJson, config.OutCsv)
	return nil
}

var verifyCmd = &cobra.Command{
	Use:   "verify [--out-json <path>] [--out-csv <path>]",
	Short: "Checks that the csv export holds exactly the records of the json history.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := cfg
		overrideString(cmd, "out-json", &config.OutJson)
		overrideString(cmd, "out-csv", &config.OutCsv)

		err := verify(cmd.Context(), config, cmd.OutOrStdout())
		if err != nil {
			serviceutil.Fatal("history is inconsistent", err)
		}
	},
}
