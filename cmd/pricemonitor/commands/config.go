package commands

import (
	"pricemonitor/lib/configutil"
	configlibsql "pricemonitor/lib/configutil/libsql"
	"pricemonitor/lib/scrapers/catalog"
)

type Config struct {
	BaseUrl          string `json:"base_url"`
	OutJson          string `json:"out_json"`
	OutCsv           string `json:"out_csv"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	UserAgent        string `json:"user_agent"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	// when set, raw http exchanges are written here while debugging
	DumpDir string `json:"dump_dir"`
	Debug   bool   `json:"debug"`
	// the run ledger, disabled unless a file or url is given
	RunLog    configlibsql.Struct `json:"run_log"`
	Selectors catalog.Selectors   `json:"selectors"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:        catalog.DefaultBaseUrl,
		OutJson:        "data/snapshots.json",
		OutCsv:         "data/snapshots.csv",
		TimeoutSeconds: int(catalog.DefaultTimeout.Seconds()),
	}
}

// LoadConfig layers the config file at `path` over the defaults and
// then applies the PRICEMONITOR_* environment variables. A missing
// file is fine.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(path, DefaultConfig())
	if err != nil {
		return Config{}, err
	}

	configutil.EnvString(&config.BaseUrl, "PRICEMONITOR_BASE_URL")
	configutil.EnvString(&config.OutJson, "PRICEMONITOR_OUT_JSON")
	configutil.EnvString(&config.OutCsv, "PRICEMONITOR_OUT_CSV")
	configutil.EnvString(&config.RunLog.File, "PRICEMONITOR_RUN_LOG")
	configutil.EnvString(&config.RunLog.Url, "PRICEMONITOR_RUN_LOG_URL")
	configutil.EnvString(&config.RunLog.AuthToken, "PRICEMONITOR_RUN_LOG_TOKEN")
	configutil.EnvString(&config.DumpDir, "PRICEMONITOR_DUMP_DIR")
	configutil.EnvInt(&config.TimeoutSeconds, "PRICEMONITOR_TIMEOUT_SECONDS")
	configutil.EnvBool(&config.CloudflareBypass, "PRICEMONITOR_CLOUDFLARE_BYPASS")
	configutil.EnvBool(&config.Debug, "PRICEMONITOR_DEBUG")

	return config, nil
}
