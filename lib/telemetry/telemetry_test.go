package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupForTestingOnce(t *testing.T) {
	cleanup := SetupForTesting(t, "test:telemetry:once")
	defer cleanup()
	require.True(t, setupTestEnvironments["test:telemetry:once"])

	again := SetupForTesting(t, "test:telemetry:once")
	again()
}

func TestHandlerLevels(t *testing.T) {
	var buff bytes.Buffer
	logger := slog.New(newHandler(&buff, false))
	logger.Debug("hidden")
	logger.Info("shown", "count", 2)
	require.NotContains(t, buff.String(), "hidden")
	require.Contains(t, buff.String(), "count=2")

	buff.Reset()
	logger = slog.New(newHandler(&buff, true))
	logger.Debug("visible")
	require.Contains(t, buff.String(), "visible")
}

func TestRecordPerfStats(t *testing.T) {
	stats := RecordPerfStats(context.Background())
	require.GreaterOrEqual(t, stats.Goroutines, int64(1))
	require.GreaterOrEqual(t, stats.CpuPercent, float64(0))
}
