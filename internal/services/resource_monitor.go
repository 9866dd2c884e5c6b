package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

const (
	defaultSampleInterval  = 30 * time.Second
	defaultHistorySize     = 100
	defaultCPUThreshold    = 85.0
	defaultMemoryThreshold = 90.0
	goroutineThreshold     = 1000
)

// ResourceSnapshot captures process and host resource usage at a point in
// time.
type ResourceSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemPercent  float64   `json:"mem_percent"`
	HeapAllocMB float64   `json:"heap_alloc_mb"`
	Goroutines  int       `json:"goroutines"`
}

// ResourceMonitorConfig bounds the monitor's sampling and health thresholds.
type ResourceMonitorConfig struct {
	SampleInterval  time.Duration
	HistorySize     int
	CPUThreshold    float64
	MemoryThreshold float64
}

// ResourceMonitor periodically samples CPU, memory and goroutine counts.
// The health endpoint reads the latest snapshot; analysis concurrency is
// derated when the host runs hot.
type ResourceMonitor struct {
	mu       sync.RWMutex
	cpuCores int
	memoryGB float64
	latest   ResourceSnapshot
	history  []ResourceSnapshot
	config   ResourceMonitorConfig
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewResourceMonitor creates a monitor with defaults applied for any zero
// config value.
func NewResourceMonitor(cfg ResourceMonitorConfig, logger *logrus.Logger) *ResourceMonitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = defaultSampleInterval
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.CPUThreshold == 0 {
		cfg.CPUThreshold = defaultCPUThreshold
	}
	if cfg.MemoryThreshold == 0 {
		cfg.MemoryThreshold = defaultMemoryThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm := &ResourceMonitor{
		cpuCores: runtime.NumCPU(),
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		rm.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		logger.WithError(err).Warn("could not read total memory")
	}

	return rm
}

// Start begins background sampling until Stop is called.
func (rm *ResourceMonitor) Start() {
	go func() {
		if err := rm.Sample(rm.ctx); err != nil {
			rm.logger.WithError(err).Warn("initial resource sample failed")
		}

		ticker := time.NewTicker(rm.config.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rm.ctx.Done():
				return
			case <-ticker.C:
				if err := rm.Sample(rm.ctx); err != nil {
					rm.logger.WithError(err).Warn("resource sample failed")
				}
			}
		}
	}()

	rm.logger.WithFields(logrus.Fields{
		"cpu_cores":       rm.cpuCores,
		"memory_gb":       fmt.Sprintf("%.1f", rm.memoryGB),
		"sample_interval": rm.config.SampleInterval,
	}).Info("resource monitor started")
}

// Stop halts background sampling.
func (rm *ResourceMonitor) Stop() {
	rm.cancel()
}

// Sample takes one resource measurement and appends it to the history.
func (rm *ResourceMonitor) Sample(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("failed to read cpu usage: %w", err)
	}
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read memory usage: %w", err)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := ResourceSnapshot{
		Timestamp:   time.Now().UTC(),
		MemPercent:  memInfo.UsedPercent,
		HeapAllocMB: float64(memStats.HeapAlloc) / (1024 * 1024),
		Goroutines:  runtime.NumGoroutine(),
	}
	if len(cpuPercent) > 0 {
		snapshot.CPUPercent = cpuPercent[0]
	}

	rm.mu.Lock()
	rm.latest = snapshot
	rm.history = append(rm.history, snapshot)
	if len(rm.history) > rm.config.HistorySize {
		rm.history = rm.history[1:]
	}
	rm.mu.Unlock()

	if snapshot.Goroutines > goroutineThreshold {
		rm.logger.WithField("goroutines", snapshot.Goroutines).Warn("goroutine count above threshold")
	}
	return nil
}

// Latest returns the most recent snapshot.
func (rm *ResourceMonitor) Latest() ResourceSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.latest
}

// History returns up to limit recent snapshots, oldest first.
func (rm *ResourceMonitor) History(limit int) []ResourceSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if limit <= 0 || limit > len(rm.history) {
		limit = len(rm.history)
	}
	start := len(rm.history) - limit
	out := make([]ResourceSnapshot, limit)
	copy(out, rm.history[start:])
	return out
}

// Healthy reports whether the latest sample is under the configured
// thresholds. An unsampled monitor is healthy.
func (rm *ResourceMonitor) Healthy() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if rm.latest.Timestamp.IsZero() {
		return true
	}
	return rm.latest.CPUPercent <= rm.config.CPUThreshold &&
		rm.latest.MemPercent <= rm.config.MemoryThreshold &&
		rm.latest.Goroutines <= goroutineThreshold
}

// RecommendedConcurrency derives a fetch concurrency limit from core count
// and current load.
func (rm *ResourceMonitor) RecommendedConcurrency() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	workers := rm.cpuCores * 2
	if workers < 2 {
		workers = 2
	}
	if rm.latest.CPUPercent > rm.config.CPUThreshold || rm.latest.MemPercent > rm.config.MemoryThreshold {
		workers = workers / 2
		if workers < 1 {
			workers = 1
		}
	}
	return workers
}

// SystemInfo summarizes the host and latest sample for diagnostics.
func (rm *ResourceMonitor) SystemInfo() map[string]interface{} {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return map[string]interface{}{
		"cpu_cores":     rm.cpuCores,
		"memory_gb":     rm.memoryGB,
		"cpu_percent":   rm.latest.CPUPercent,
		"mem_percent":   rm.latest.MemPercent,
		"heap_alloc_mb": rm.latest.HeapAllocMB,
		"goroutines":    rm.latest.Goroutines,
		"sampled_at":    rm.latest.Timestamp,
	}
}
