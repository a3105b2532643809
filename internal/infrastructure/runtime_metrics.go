package infrastructure

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkerRuntimeMetrics records Go runtime gauges labelled with the worker id
type WorkerRuntimeMetrics struct {
	goroutines  metric.Int64Gauge
	heapAlloc   metric.Int64Gauge
	sysMemory   metric.Int64Gauge
	gcCount     metric.Int64Gauge
	lastGCPause metric.Float64Gauge
	uptime      metric.Float64Gauge

	attrs metric.MeasurementOption
}

// NewWorkerRuntimeMetrics creates the runtime instruments for one worker
func NewWorkerRuntimeMetrics(meter metric.Meter, workerID int) (*WorkerRuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"worker_goroutines",
		metric.WithDescription("Number of goroutines in the worker process"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"worker_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	sysMemory, err := meter.Int64Gauge(
		"worker_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"worker_gc_count",
		metric.WithDescription("Number of completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}

	lastGCPause, err := meter.Float64Gauge(
		"worker_gc_last_pause_seconds",
		metric.WithDescription("Duration of the most recent GC pause"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"worker_uptime_seconds",
		metric.WithDescription("Seconds since the worker started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerRuntimeMetrics{
		goroutines:  goroutines,
		heapAlloc:   heapAlloc,
		sysMemory:   sysMemory,
		gcCount:     gcCount,
		lastGCPause: lastGCPause,
		uptime:      uptime,
		attrs: metric.WithAttributes(
			attribute.Int("worker_id", workerID),
			attribute.Int("pid", os.Getpid()),
		),
	}, nil
}

// RuntimeStats is a snapshot of the worker's runtime state
type RuntimeStats struct {
	Goroutines  int64
	HeapAlloc   int64
	SysMemory   int64
	GCCount     uint32
	LastGCPause time.Duration
	Uptime      time.Duration
}

// Collect reads runtime stats and records them
func (m *WorkerRuntimeMetrics) Collect(ctx context.Context, started time.Time) RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := RuntimeStats{
		Goroutines: int64(runtime.NumGoroutine()),
		HeapAlloc:  int64(ms.HeapAlloc),
		SysMemory:  int64(ms.Sys),
		GCCount:    ms.NumGC,
		Uptime:     time.Since(started),
	}
	if ms.NumGC > 0 {
		stats.LastGCPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])
	}

	m.goroutines.Record(ctx, stats.Goroutines, m.attrs)
	m.heapAlloc.Record(ctx, stats.HeapAlloc, m.attrs)
	m.sysMemory.Record(ctx, stats.SysMemory, m.attrs)
	m.gcCount.Record(ctx, int64(stats.GCCount), m.attrs)
	m.lastGCPause.Record(ctx, stats.LastGCPause.Seconds(), m.attrs)
	m.uptime.Record(ctx, stats.Uptime.Seconds(), m.attrs)

	return stats
}

// RuntimeCollector samples WorkerRuntimeMetrics on an interval
type RuntimeCollector struct {
	metrics  *WorkerRuntimeMetrics
	started  time.Time
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRuntimeCollector creates a collector for one worker
func NewRuntimeCollector(meter metric.Meter, workerID int, interval time.Duration) (*RuntimeCollector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("runtime collector interval must be positive, got %s", interval)
	}
	metrics, err := NewWorkerRuntimeMetrics(meter, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		metrics:  metrics,
		started:  time.Now(),
		interval: interval,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start collects until Stop is called or ctx is done
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.started)

	for {
		select {
		case <-ticker.C:
			c.metrics.Collect(ctx, c.started)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. It is safe to call more than once.
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Snapshot collects once and returns the stats
func (c *RuntimeCollector) Snapshot(ctx context.Context) RuntimeStats {
	return c.metrics.Collect(ctx, c.started)
}
