package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("gelbeseiten.perf_stats")

// InstrumentPerfStats records process gauges every interval until ctx is
// done. Gauges are created lazily so they bind to the installed provider.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	rssGauge, _ := meter.Int64Gauge("rss_mb")
	allocGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Warn("failed to open own process for stats", "err", err)
	}

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				usage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(usage) > 0 {
					cpuGauge.Record(ctx, usage[0])
				} else if err != nil {
					slog.Debug("failed to read cpu usage", "err", err)
				}
				if proc != nil {
					mem, err := proc.MemoryInfoWithContext(ctx)
					if err == nil {
						rssGauge.Record(ctx, int64(mem.RSS/1_000_000))
					}
				}

				allocGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
