package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records resource usage of the issuer process
type SystemMetrics struct {
	goRoutines    metric.Int64Gauge
	heapInUse     metric.Int64Gauge
	residentSize  metric.Int64Gauge
	cpuUsage      metric.Float64Gauge
	processUptime metric.Float64Gauge

	proc *process.Process
}

// SystemStats is one sample of process resource usage
type SystemStats struct {
	GoRoutines    int64         `json:"goroutines"`
	HeapInUse     int64         `json:"heap_in_use_bytes"`
	ResidentSize  int64         `json:"resident_bytes"`
	CPUUsage      float64       `json:"cpu_usage_percent"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewSystemMetrics creates the process gauges on meter
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"process_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapInUse, err := meter.Int64Gauge(
		"process_heap_in_use_bytes",
		metric.WithDescription("Heap bytes in use by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	residentSize, err := meter.Int64Gauge(
		"process_resident_memory_bytes",
		metric.WithDescription("Resident set size reported by the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	cpuUsage, err := meter.Float64Gauge(
		"process_cpu_usage_percent",
		metric.WithDescription("Process CPU usage percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	// The OS view is best effort; runtime gauges still work without it.
	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &SystemMetrics{
		goRoutines:    goRoutines,
		heapInUse:     heapInUse,
		residentSize:  residentSize,
		cpuUsage:      cpuUsage,
		processUptime: processUptime,
		proc:          proc,
	}, nil
}

// Collect samples and records process metrics
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapInUse:     int64(memStats.HeapInuse),
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now().UTC(),
	}

	if sm.proc != nil {
		if info, err := sm.proc.MemoryInfoWithContext(ctx); err == nil {
			stats.ResidentSize = int64(info.RSS)
		}
		if pct, err := sm.proc.CPUPercentWithContext(ctx); err == nil {
			stats.CPUUsage = pct
		}
	}

	sm.goRoutines.Record(ctx, stats.GoRoutines)
	sm.heapInUse.Record(ctx, stats.HeapInUse)
	sm.residentSize.Record(ctx, stats.ResidentSize)
	sm.cpuUsage.Record(ctx, stats.CPUUsage)
	sm.processUptime.Record(ctx, stats.ProcessUptime.Seconds())

	return stats
}

// SystemMetricsCollector samples SystemMetrics on a fixed interval
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	startTime time.Time
	interval  time.Duration
	logger    *slog.Logger
}

// NewSystemMetricsCollector creates a collector; Start runs it
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration, logger *slog.Logger) (*SystemMetricsCollector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("collection interval must be positive, got %s", interval)
	}
	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}
	return &SystemMetricsCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		logger:    WithComponent(logger, "system_metrics"),
	}, nil
}

// Start collects until ctx is cancelled. It always returns nil so it can
// run inside an errgroup.
func (smc *SystemMetricsCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.metrics.Collect(ctx, smc.startTime)
	for {
		select {
		case <-ticker.C:
			stats := smc.metrics.Collect(ctx, smc.startTime)
			smc.logger.DebugContext(ctx, "process metrics sampled",
				slog.Int64("goroutines", stats.GoRoutines),
				slog.Int64("resident_bytes", stats.ResidentSize),
				slog.Float64("cpu_percent", stats.CPUUsage))
		case <-ctx.Done():
			return nil
		}
	}
}

// CurrentStats takes an immediate sample
func (smc *SystemMetricsCollector) CurrentStats(ctx context.Context) *SystemStats {
	return smc.metrics.Collect(ctx, smc.startTime)
}
