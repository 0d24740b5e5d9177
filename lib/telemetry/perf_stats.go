package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("go.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage", metric.WithUnit("%"))
var memoryGauge, _ = meter.Int64Gauge("allocated_mb", metric.WithUnit("MB"))
var rssGauge, _ = meter.Int64Gauge("rss_mb", metric.WithUnit("MB"))
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

type PerfStats struct {
	CpuPercent  float64
	AllocatedMb int64
	RssMb       int64
	Goroutines  int64
}

// RecordPerfStats takes one sample of the process' resource usage,
// records it on the meter and returns it. A cli run is short lived so
// there is no background ticker, callers sample once at the end.
func RecordPerfStats(ctx context.Context) PerfStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := PerfStats{
		AllocatedMb: int64(memStats.Alloc / 1_000_000),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.DebugContext(ctx, "failed to inspect own process", "err", err)
	} else {
		cpuUsage, err := proc.CPUPercentWithContext(ctx)
		if err == nil {
			stats.CpuPercent = cpuUsage
		} else {
			slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
		}
		mem, err := proc.MemoryInfoWithContext(ctx)
		if err == nil {
			stats.RssMb = int64(mem.RSS / 1_000_000)
		} else {
			slog.DebugContext(ctx, "failed to read memory usage", "err", err)
		}
	}

	cpuGauge.Record(ctx, stats.CpuPercent)
	memoryGauge.Record(ctx, stats.AllocatedMb)
	rssGauge.Record(ctx, stats.RssMb)
	goroutineGauge.Record(ctx, stats.Goroutines)

	return stats
}
