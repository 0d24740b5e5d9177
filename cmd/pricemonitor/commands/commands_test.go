package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"pricemonitor/lib/scrapers/catalog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const catalogPage = `<!doctype html>
<html>
<body>
  <main data-catalog>
    <article data-product-id="iphone-15-128">
      <h2>iPhone 15 128GB</h2>
      <span class="price">$799.00</span>
      <span class="availability">In stock</span>
      <a href="p/iphone-15-128.html">View</a>
    </article>
    <article data-product-id="iphone-15-pro-256">
      <h2>iPhone 15 Pro 256GB</h2>
      <span class="price">1.099,00 €</span>
      <span class="availability">Only 2 left</span>
      <span class="condition">Refurbished</span>
      <a href="p/iphone-15-pro-256.html">View</a>
    </article>
  </main>
</body>
</html>`

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PRICEMONITOR_BASE_URL",
		"PRICEMONITOR_OUT_JSON",
		"PRICEMONITOR_OUT_CSV",
		"PRICEMONITOR_RUN_LOG",
		"PRICEMONITOR_RUN_LOG_URL",
		"PRICEMONITOR_RUN_LOG_TOKEN",
		"PRICEMONITOR_DUMP_DIR",
		"PRICEMONITOR_TIMEOUT_SECONDS",
		"PRICEMONITOR_CLOUDFLARE_BYPASS",
		"PRICEMONITOR_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func catalogServer(t *testing.T, status int) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(catalogPage))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseUrl string) Config {
	dir := t.TempDir()
	config := DefaultConfig()
	config.BaseUrl = baseUrl
	config.OutJson = filepath.Join(dir, "data", "snapshots.json")
	config.OutCsv = filepath.Join(dir, "data", "snapshots.csv")
	config.RunLog.File = filepath.Join(dir, "runs.db")
	config.TimeoutSeconds = 5
	return config
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), config)
	require.Equal(t, catalog.DefaultBaseUrl, config.BaseUrl)
	require.Equal(t, 20, config.TimeoutSeconds)
	require.False(t, config.RunLog.Enabled())
}

func TestLoadConfigLayers(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments are allowed
		base_url: "https://example.com/catalog",
		out_json: "history.json",
		selectors: { entry: ".item" },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		out_json: "local.json",
		run_log: { file: "runs.db" },
	}`), 0644))
	t.Setenv("PRICEMONITOR_OUT_CSV", "env.csv")
	t.Setenv("PRICEMONITOR_TIMEOUT_SECONDS", "7")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/catalog", config.BaseUrl)
	require.Equal(t, "local.json", config.OutJson)
	require.Equal(t, "env.csv", config.OutCsv)
	require.Equal(t, 7, config.TimeoutSeconds)
	require.Equal(t, ".item", config.Selectors.Entry)
	require.Equal(t, "runs.db", config.RunLog.File)
}

func TestHealthcheck(t *testing.T) {
	var out bytes.Buffer
	healthcheck(&out, time.Date(2024, time.January, 1, 12, 30, 0, 0, time.UTC))
	require.Equal(t, "[ok] pricemonitor CLI is working | utc=2024-01-01T12:30:00Z\n", out.String())
}

func TestScrape(t *testing.T) {
	server := catalogServer(t, http.StatusOK)
	config := testConfig(t, server.URL)

	var out bytes.Buffer
	snapshots, err := scrape(context.Background(), config, &out)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	var printed []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	require.Len(t, printed, 2)
	require.Equal(t, "iphone-15-128", printed[0]["product_key"])
	require.Equal(t, "EUR", printed[1]["currency"])
	require.Equal(t, server.URL+"/p/iphone-15-pro-256.html", printed[1]["url"])

	_, err = os.Stat(config.OutJson)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunHistoryVerify(t *testing.T) {
	ctx := context.Background()
	server := catalogServer(t, http.StatusOK)
	config := testConfig(t, server.URL)

	var out bytes.Buffer
	first, err := runPipeline(ctx, config, &out)
	require.NoError(t, err)
	require.Len(t, first.Merged, 2)
	require.Contains(t, out.String(), "fetched=2 existing=0 merged=2 added=2")

	out.Reset()
	second, err := runPipeline(ctx, config, &out)
	require.NoError(t, err)
	require.Len(t, second.Existing, 2)
	require.Len(t, second.Merged, 4)

	out.Reset()
	require.NoError(t, verify(ctx, config, &out))
	require.Contains(t, out.String(), "[ok] 4 records")

	out.Reset()
	require.NoError(t, renderHistory(ctx, config, "", &out))
	rendered := out.String()
	require.Contains(t, rendered, "iphone-15-128")
	require.Contains(t, rendered, "iphone-15-pro-256")
	require.Contains(t, rendered, "799.00 USD")
	require.Contains(t, rendered, "1099.00 EUR")

	out.Reset()
	require.NoError(t, renderHistory(ctx, config, "iphone-15-pro-256", &out))
	require.NotContains(t, out.String(), "799.00 USD")

	err = renderHistory(ctx, config, "iphone-15-pro-265", &out)
	var unknown UnknownKeyError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "iphone-15-pro-256", unknown.Suggestion)

	err = renderHistory(ctx, config, "qqqq", &out)
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "", unknown.Suggestion)
	require.Equal(t, `unknown product key "qqqq"`, err.Error())

	out.Reset()
	require.NoError(t, renderRuns(ctx, config, 10, &out))
	require.Contains(t, out.String(), first.RunID)
	require.Contains(t, out.String(), second.RunID)
	require.Equal(t, 2, strings.Count(out.String(), "succeeded"))
}

func TestRunFetchFailure(t *testing.T) {
	server := catalogServer(t, http.StatusServiceUnavailable)
	config := testConfig(t, server.URL)

	var out bytes.Buffer
	_, err := runPipeline(context.Background(), config, &out)
	var fetchErr *catalog.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	require.Empty(t, out.String())

	_, err = os.Stat(config.OutJson)
	require.ErrorIs(t, err, os.ErrNotExist)

	out.Reset()
	require.NoError(t, renderRuns(context.Background(), config, 10, &out))
	require.Contains(t, out.String(), "failed")
}

func TestRenderHistoryEmpty(t *testing.T) {
	config := testConfig(t, "https://example.com/")

	var out bytes.Buffer
	require.NoError(t, renderHistory(context.Background(), config, "", &out))
	require.Contains(t, out.String(), "no snapshots recorded")
}

func TestRenderRunsWithoutLedger(t *testing.T) {
	config := testConfig(t, "https://example.com/")
	config.RunLog.File = ""

	var out bytes.Buffer
	require.Error(t, renderRuns(context.Background(), config, 10, &out))
}
