package workers

import (
	"context"
	"log/slog"
	"os"
	"time"
	"ws-chat/contract"
	"ws-chat/observability"

	"github.com/shirou/gopsutil/process"
)

const defaultReportInterval = 30 * time.Second

// ReporterWorker periodically logs the number of live connections and the process footprint.
type ReporterWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  *observability.Metrics
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics, interval time.Duration) *ReporterWorker {
	if interval <= 0 {
		interval = defaultReportInterval
	}
	return &ReporterWorker{log: log, registry: registry, metrics: metrics, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *ReporterWorker) report(p *process.Process) {
	connections := w.registry.Len()
	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Warn("Failed to collect self stats", "error", err, "connections", connections)
		return
	}
	w.metrics.ProcessStats(rss, cpu)
	w.log.Info("Gateway status",
		"connections", connections,
		"rss_mb", rss/1024/1024,
		"cpu_percent", cpu)
}

// selfStats retrieves resident memory and CPU usage of the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
