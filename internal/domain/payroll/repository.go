package payroll

import "context"

// PendingApprovalReader reads previews waiting in the approval queue.
type PendingApprovalReader interface {
	ListPendingApprovals(ctx context.Context, companyID string) ([]PendingPreviewRecord, error)
}

// SavedPayrollReader reads payrolls already saved for a month.
type SavedPayrollReader interface {
	ListSavedPayrolls(ctx context.Context, companyID string, month, year int) ([]SavedPayrollRecord, error)
}

// BatchResultStore keeps every BatchApprovalResult produced by a completed run.
// All methods include companyID so one company cannot read another's batches.
type BatchResultStore interface {
	SaveBatch(ctx context.Context, batch StoredBatch) error
	GetBatchByPayrollID(ctx context.Context, payrollID string, companyID string) (StoredBatch, error)
	RecordDeliveries(ctx context.Context, payrollID string, companyID string, results []EmployeeDelivery) error
}

// PreviewGenerator computes a payroll preview (tax, allowances, deductions).
type PreviewGenerator interface {
	GetPayrollPreview(ctx context.Context, companyID string, req PreviewRequest) (PreviewResult, error)
}

// ApprovalSubmitter routes a previewed payroll into approval.
type ApprovalSubmitter interface {
	SubmitForApproval(ctx context.Context, payload SubmitPayload) (BatchApprovalResult, error)
}

// PayslipDelivery re-triggers payslip delivery for a saved payroll.
// An empty employeeIDs means every employee of the payroll.
type PayslipDelivery interface {
	ResendPayslips(ctx context.Context, companyID string, payrollID string, employeeIDs []string) (ResendOutcome, error)
}

// EventPublisher is told about run transitions and completed batches.
type EventPublisher interface {
	RunTransitioned(ctx context.Context, companyID string, run RunResponse)
	BatchCompleted(ctx context.Context, batch StoredBatch)
	PayslipsResent(ctx context.Context, companyID string, payrollID string, outcome ResendOutcome)
}
