package payroll

import (
	"context"
	"time"
)

// PayrollBatchService drives payroll runs from scope selection to approval.
// The company is taken from the request context.
type PayrollBatchService interface {
	StartRun(ctx context.Context, req StartRunRequest) (RunResponse, error)
	GetRun(ctx context.Context, runID string) (RunResponse, error)
	UpdateDraft(ctx context.Context, req UpdateDraftRequest) (RunResponse, error)

	RequestPreview(ctx context.Context, req RequestPreviewRequest) (RunResponse, error)
	SubmitForApproval(ctx context.Context, runID string) (RunResponse, error)
	Retry(ctx context.Context, runID string) (RunResponse, error)
	Acknowledge(ctx context.Context, runID string) (RunResponse, error)
	Reset(ctx context.Context, runID string) (RunResponse, error)

	CheckOverlap(ctx context.Context, req CheckOverlapRequest) (OverlapVerdict, error)
	GetBatch(ctx context.Context, payrollID string) (BatchResponse, error)
	ResendPayslips(ctx context.Context, req ResendPayslipsRequest) (ResendOutcome, error)
	ValidateSchedule(ctx context.Context, req ValidateScheduleRequest) (ScheduleValidation, error)

	// PruneRuns forgets runs of every company that have been idle for idleFor
	// and returns how many were removed.
	PruneRuns(ctx context.Context, idleFor time.Duration) int
}
