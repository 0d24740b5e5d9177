package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"pricemonitor/cmd/pricemonitor/commands"
	"pricemonitor/lib/configutil"
	"pricemonitor/lib/serviceutil"
	"pricemonitor/lib/telemetry"
)

func main() {
	configutil.LoadDotenv()

	ctx := serviceutil.SignalContext()
	tel, err := telemetry.SetupFromEnv(ctx, "pricemonitor")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownErr := tel.Shutdown(context.Background())
	if shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "failed to shutdown telemetry:", shutdownErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
