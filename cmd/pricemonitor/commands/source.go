package commands

import (
	"fmt"
	"pricemonitor/lib/restyutil"
	"pricemonitor/lib/scrapers/catalog"
	"pricemonitor/services/pricehistory"
	"pricemonitor/services/pricehistory/db"
	"time"
)

func newSource(config Config) (*catalog.Source, error) {
	if config.DumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(config.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("prepare dump dir: %w", err)
		}
		catalog.SetRestyInstrumentOutput(out)
	}

	client := catalog.NewClient(catalog.ClientOptions{
		Timeout:          time.Duration(config.TimeoutSeconds) * time.Second,
		UserAgent:        config.UserAgent,
		CloudflareBypass: config.CloudflareBypass,
	})
	return catalog.NewSource(client, catalog.SourceOptions{
		BaseUrl:   config.BaseUrl,
		Selectors: config.Selectors,
	})
}

// openLedger returns nil when no run log is configured.
func openLedger(config Config) (*pricehistory.Ledger, error) {
	if !config.RunLog.Enabled() {
		return nil, nil
	}
	database, err := config.RunLog.OpenDB(db.Schema)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return pricehistory.NewLedger(database), nil
}
