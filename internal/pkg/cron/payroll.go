package cron

import (
	"context"
	"log/slog"
	"time"
)

// RunPruner is implemented by the payroll run registry.
type RunPruner interface {
	PruneRuns(ctx context.Context, idleFor time.Duration) int
}

// PayrollJobs contains housekeeping for in-memory payroll runs
type PayrollJobs struct {
	runs      RunPruner
	retention time.Duration
}

func NewPayrollJobs(runs RunPruner, retention time.Duration) *PayrollJobs {
	return &PayrollJobs{runs: runs, retention: retention}
}

// RegisterJobs checks for stale runs every tenth of the retention, at most hourly.
func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	interval := j.retention / 10
	if interval <= 0 || interval > time.Hour {
		interval = time.Hour
	}
	scheduler.AddJob("prune_stale_payroll_runs", interval, j.PruneStaleRuns)
}

func (j *PayrollJobs) PruneStaleRuns(ctx context.Context) error {
	if n := j.runs.PruneRuns(ctx, j.retention); n > 0 {
		slog.Info("Pruned stale payroll runs", "count", n, "retention", j.retention)
	}
	return nil
}
