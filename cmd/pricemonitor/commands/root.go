package commands

import (
	"context"
	"fmt"
	"os"
	"pricemonitor/lib/telemetry"

	"github.com/spf13/cobra"
)

var configPath *string
var debug *bool

// the effective configuration of the running command, set before any
// subcommand runs
var cfg Config

var rootCmd = &cobra.Command{
	Use:   "pricemonitor",
	Short: "pricemonitor records the price history of a product catalog.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if *debug {
			loaded.Debug = true
		}
		telemetry.InitSlog(loaded.Debug)
		cfg = loaded
		return nil
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file, <name>.local.json5 next to it overrides it.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enables debug logging and http dumps.")
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

// overrideString copies the value of flag `name` into `target` when
// the flag was given on the command line.
func overrideString(cmd *cobra.Command, name string, target *string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return
	}
	*target = value
}
