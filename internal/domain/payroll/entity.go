package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency enum
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyOneTime   Frequency = "one_time"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyOneTime:
		return true
	}
	return false
}

// ScopeType enum
type ScopeType string

const (
	ScopeCompany    ScopeType = "company"
	ScopeDepartment ScopeType = "department"
	ScopeIndividual ScopeType = "individual"
)

// ScopeSelector chooses which employees a payroll run covers.
type ScopeSelector struct {
	Type          ScopeType `json:"type"`
	DepartmentIDs []string  `json:"department_ids,omitempty"`
	EmployeeIDs   []string  `json:"employee_ids,omitempty"`
}

// PayrollPeriod identifies the processing window of a run.
type PayrollPeriod struct {
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Frequency Frequency `json:"frequency"`
}

// Matches reports whether both periods describe the same month, year and frequency.
func (p PayrollPeriod) Matches(other PayrollPeriod) bool {
	return p.Month == other.Month && p.Year == other.Year && p.Frequency == other.Frequency
}

func (p PayrollPeriod) String() string {
	return fmt.Sprintf("%s %d (%s)", time.Month(p.Month), p.Year, p.Frequency)
}

// EmployeeIDSource is implemented by every record shape the overlap check reads.
type EmployeeIDSource interface {
	EmployeeIDs() []string
	Period() PayrollPeriod
	// Reference is the approval or payroll id shown to the user on a conflict.
	Reference() string
}

// PreviewMetadata is the period block stored alongside a pending preview.
type PreviewMetadata struct {
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Frequency Frequency `json:"frequency"`
}

// PayrollLine is one employee row of a computed preview.
type PayrollLine struct {
	EmployeeID    string                     `json:"employee_id"`
	EmployeeName  string                     `json:"employee_name,omitempty"`
	BaseSalary    decimal.Decimal            `json:"base_salary"`
	Allowances    map[string]decimal.Decimal `json:"allowances,omitempty"`
	Deductions    map[string]decimal.Decimal `json:"deductions,omitempty"`
	GrossPay      decimal.Decimal            `json:"gross_pay"`
	TaxableIncome decimal.Decimal            `json:"taxable_income"`
	PAYE          decimal.Decimal            `json:"paye"`
	NetPay        decimal.Decimal            `json:"net_pay"`
}

// PayrollLineError reports an employee the preview generator could not compute.
type PayrollLineError struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// ApprovalStatus enum
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// PendingPreviewRecord - preview waiting in the approval queue
type PendingPreviewRecord struct {
	ApprovalID     string
	ApprovalStatus ApprovalStatus
	Metadata       PreviewMetadata
	Lines          []PayrollLine
	CreatedAt      time.Time
}

func (r PendingPreviewRecord) Period() PayrollPeriod {
	return PayrollPeriod{Month: r.Metadata.Month, Year: r.Metadata.Year, Frequency: r.Metadata.Frequency}
}

func (r PendingPreviewRecord) Reference() string { return r.ApprovalID }

func (r PendingPreviewRecord) EmployeeIDs() []string {
	ids := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		if line.EmployeeID != "" {
			ids = append(ids, line.EmployeeID)
		}
	}
	return ids
}

// SavedPayrollRecord - persisted payroll. Older rows carry a single EmployeeID
// instead of the EmployeeIDList array.
type SavedPayrollRecord struct {
	PayrollID      string
	Month          int
	Year           int
	Frequency      Frequency
	EmployeeIDList []string
	EmployeeID     *string
	CreatedAt      time.Time
}

func (r SavedPayrollRecord) Period() PayrollPeriod {
	return PayrollPeriod{Month: r.Month, Year: r.Year, Frequency: r.Frequency}
}

func (r SavedPayrollRecord) Reference() string { return r.PayrollID }

func (r SavedPayrollRecord) EmployeeIDs() []string {
	if len(r.EmployeeIDList) > 0 {
		return r.EmployeeIDList
	}
	if r.EmployeeID != nil && *r.EmployeeID != "" {
		return []string{*r.EmployeeID}
	}
	return nil
}

// PreviewTotals aggregates a preview across all lines.
type PreviewTotals struct {
	GrossPay      decimal.Decimal `json:"gross_pay"`
	Deductions    decimal.Decimal `json:"deductions"`
	NetPay        decimal.Decimal `json:"net_pay"`
	TaxableIncome decimal.Decimal `json:"taxable_income"`
	PAYE          decimal.Decimal `json:"paye"`
}

// PreviewResult - computed, unapproved payroll for one run
type PreviewResult struct {
	EmployeeCount int                `json:"employee_count"`
	Totals        PreviewTotals      `json:"totals"`
	LineItems     []PayrollLine      `json:"line_items"`
	Errors        []PayrollLineError `json:"errors"`
}

// ProcessingSummary counts the outcome of a batch submission.
type ProcessingSummary struct {
	Successful     int `json:"successful"`
	Duplicates     int `json:"duplicates"`
	Failed         int `json:"failed"`
	TotalEmployees int `json:"total_employees"`
}

// BatchApprovalResult is created once per successful submission and never modified.
type BatchApprovalResult struct {
	ApprovalID        string            `json:"approval_id"`
	PayrollID         string            `json:"payroll_id"`
	ProcessingSummary ProcessingSummary `json:"processing_summary"`
}

// StoredBatch is a BatchApprovalResult as persisted on completion.
type StoredBatch struct {
	BatchApprovalResult
	CompanyID   string
	RunID       string
	Period      PayrollPeriod
	EmployeeIDs []string
	CreatedAt   time.Time
}

// DeliveryStatus enum
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// EmployeeDelivery is the per-employee result of a payslip resend.
type EmployeeDelivery struct {
	EmployeeID string         `json:"employee_id"`
	Status     DeliveryStatus `json:"status"`
	PayslipURL *string        `json:"payslip_url,omitempty"`
	Message    *string        `json:"message,omitempty"`
}

// ResendOutcome - result of re-triggering payslip delivery
type ResendOutcome struct {
	SuccessCount       int                   `json:"success_count"`
	ErrorCount         int                   `json:"error_count"`
	PerEmployeeResults []EmployeeDelivery    `json:"per_employee_results"`
	Warning            *PartialDeliveryError `json:"-"`
}

// AllowanceSchedule is the recurrence window of an allowance.
type AllowanceSchedule struct {
	Frequency Frequency  `json:"frequency"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ScheduleValidation is the outcome of ValidateSchedule.
type ScheduleValidation struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`
}

// OverlapSource names the collection a duplicate was found in.
type OverlapSource string

const (
	OverlapSourceNone    OverlapSource = ""
	OverlapSourcePreview OverlapSource = "preview"
	OverlapSourcePayroll OverlapSource = "payroll"
)

// OverlapConflict is one record that already covers some candidate employees.
type OverlapConflict struct {
	Source         OverlapSource `json:"source"`
	Reference      string        `json:"reference"`
	ConflictingIDs []string      `json:"conflicting_ids"`
}

// OverlapVerdict is the result of a duplicate check. Source, Reference and
// ConflictingIDs describe the primary conflict; Conflicts lists every match
// when the policy reports all of them.
type OverlapVerdict struct {
	HasDuplicate   bool              `json:"has_duplicate"`
	Source         OverlapSource     `json:"source,omitempty"`
	ConflictingIDs []string          `json:"conflicting_ids,omitempty"`
	Reference      string            `json:"reference,omitempty"`
	Conflicts      []OverlapConflict `json:"conflicts,omitempty"`
	Degraded       bool              `json:"degraded"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// RunStage enum
type RunStage string

const (
	StageIdle       RunStage = "idle"
	StagePreviewing RunStage = "previewing"
	StagePreviewed  RunStage = "previewed"
	StageProcessing RunStage = "processing"
	StageCompleted  RunStage = "completed"
	StageError      RunStage = "error"
)

// InFlight reports whether an upstream call is running in this stage.
func (s RunStage) InFlight() bool {
	return s == StagePreviewing || s == StageProcessing
}

// RunStep names the asynchronous step that produced an error.
type RunStep string

const (
	StepPreview RunStep = "preview"
	StepSubmit  RunStep = "submit"
)

// RunFailure is kept while a run sits in the error stage.
type RunFailure struct {
	Step      RunStep `json:"step"`
	Message   string  `json:"message"`
	Retryable bool    `json:"retryable"`
}

// Transition is one entry of a run's history.
type Transition struct {
	From   RunStage  `json:"from"`
	To     RunStage  `json:"to"`
	Event  string    `json:"event"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}
