package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
)

// ========== FORM VALIDATION ==========

// Validate checks the period fields of a run form.
func (p PayrollPeriod) Validate(minYear int) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if p.Month == 0 {
		errs = append(errs, validator.ValidationError{Field: "period.month", Message: "is required"})
	} else if p.Month < 1 || p.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "period.month", Message: "must be between 1 and 12"})
	}
	if p.Year == 0 {
		errs = append(errs, validator.ValidationError{Field: "period.year", Message: "is required"})
	} else if p.Year < minYear {
		errs = append(errs, validator.ValidationError{Field: "period.year", Message: fmt.Sprintf("must be %d or later", minYear)})
	}
	if p.Frequency == "" {
		errs = append(errs, validator.ValidationError{Field: "period.frequency", Message: "is required"})
	} else if !p.Frequency.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "period.frequency", Message: "must be 'monthly', 'quarterly', 'yearly' or 'one_time'"})
	}

	return errs
}

// Validate checks that the selector carries the ids its type needs.
func (s ScopeSelector) Validate() validator.ValidationErrors {
	var errs validator.ValidationErrors

	switch s.Type {
	case ScopeCompany:
	case ScopeDepartment:
		if len(nonEmpty(s.DepartmentIDs)) == 0 {
			errs = append(errs, validator.ValidationError{Field: "scope.department_ids", Message: "at least one department is required"})
		}
	case ScopeIndividual:
		if len(nonEmpty(s.EmployeeIDs)) == 0 {
			errs = append(errs, validator.ValidationError{Field: "scope.employee_ids", Message: "at least one employee is required"})
		}
	case "":
		errs = append(errs, validator.ValidationError{Field: "scope.type", Message: "is required"})
	default:
		errs = append(errs, validator.ValidationError{Field: "scope.type", Message: "must be 'company', 'department' or 'individual'"})
	}

	return errs
}

// RunForm is the editable part of a payroll run.
type RunForm struct {
	Period PayrollPeriod `json:"period"`
	Scope  ScopeSelector `json:"scope"`
}

// Validate checks the whole form before a preview may start.
func (f RunForm) Validate(minYear int) error {
	errs := append(f.Period.Validate(minYear), f.Scope.Validate()...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RUN DTOs ==========

type StartRunRequest struct {
	Period PayrollPeriod `json:"period"`
	Scope  ScopeSelector `json:"scope"`
}

type UpdateDraftRequest struct {
	RunID  string         `json:"-"`
	Period *PayrollPeriod `json:"period,omitempty"`
	Scope  *ScopeSelector `json:"scope,omitempty"`
}

type RequestPreviewRequest struct {
	RunID string `json:"-"`
	// AllowUnresolved lets an individual scope proceed when some ids are unknown.
	AllowUnresolved bool `json:"allow_unresolved"`
}

type RunResponse struct {
	ID                  string               `json:"id"`
	Stage               RunStage             `json:"stage"`
	Period              PayrollPeriod        `json:"period"`
	Scope               ScopeSelector        `json:"scope"`
	Locked              bool                 `json:"locked"`
	InFlight            bool                 `json:"in_flight"`
	ResolvedEmployeeIDs []string             `json:"resolved_employee_ids,omitempty"`
	ScopeWarnings       []string             `json:"scope_warnings,omitempty"`
	Overlap             *OverlapVerdict      `json:"overlap,omitempty"`
	Preview             *PreviewResult       `json:"preview,omitempty"`
	Result              *BatchApprovalResult `json:"result,omitempty"`
	Failure             *RunFailure          `json:"failure,omitempty"`
	History             []Transition         `json:"history"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ========== OVERLAP DTOs ==========

type CheckOverlapRequest struct {
	Period      PayrollPeriod `json:"period"`
	EmployeeIDs []string      `json:"employee_ids"`
}

func (r *CheckOverlapRequest) Validate(minYear int) error {
	errs := r.Period.Validate(minYear)
	if len(nonEmpty(r.EmployeeIDs)) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "at least one employee is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESEND DTOs ==========

type ResendPayslipsRequest struct {
	PayrollID   string   `json:"-"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = every employee of the batch
}

func (r *ResendPayslipsRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PayrollID) {
		errs = append(errs, validator.ValidationError{Field: "payroll_id", Message: "is required"})
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "must not contain empty ids"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ResendResponse struct {
	ResendOutcome
	WarningMessage *string `json:"warning,omitempty"`
}

type BatchResponse struct {
	ApprovalID        string            `json:"approval_id"`
	PayrollID         string            `json:"payroll_id"`
	ProcessingSummary ProcessingSummary `json:"processing_summary"`
	RunID             string            `json:"run_id"`
	Period            PayrollPeriod     `json:"period"`
	EmployeeCount     int               `json:"employee_count"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ========== SCHEDULE DTOs ==========

type ValidateScheduleRequest struct {
	Frequency Frequency `json:"frequency"`
	StartDate *string   `json:"start_date,omitempty"`
	EndDate   *string   `json:"end_date,omitempty"`
}

// Schedule parses the request dates (YYYY-MM-DD).
func (r *ValidateScheduleRequest) Schedule() (AllowanceSchedule, error) {
	var errs validator.ValidationErrors

	if !r.Frequency.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be 'monthly', 'quarterly', 'yearly' or 'one_time'"})
	}

	schedule := AllowanceSchedule{Frequency: r.Frequency}
	if r.StartDate != nil && !validator.IsEmpty(*r.StartDate) {
		start, ok := validator.IsValidDate(*r.StartDate)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be in YYYY-MM-DD format"})
		} else {
			schedule.StartDate = &start
		}
	}
	if r.EndDate != nil && !validator.IsEmpty(*r.EndDate) {
		end, ok := validator.IsValidDate(*r.EndDate)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in YYYY-MM-DD format"})
		} else {
			schedule.EndDate = &end
		}
	}

	if len(errs) > 0 {
		return AllowanceSchedule{}, errs
	}
	return schedule, nil
}

// ========== UPSTREAM PAYLOADS ==========

// PreviewRequest is sent to the preview generator.
type PreviewRequest struct {
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	Frequency   Frequency `json:"frequency"`
	Scope       ScopeType `json:"scope"`
	ScopeIDs    []string  `json:"scope_id,omitempty"`
	EmployeeIDs []string  `json:"employee_ids"`
}

// SubmitPayload is sent to the approval submitter.
type SubmitPayload struct {
	RunID       string        `json:"run_id"`
	CompanyID   string        `json:"company_id"`
	Period      PayrollPeriod `json:"period"`
	Scope       ScopeSelector `json:"scope"`
	EmployeeIDs []string      `json:"employee_ids"`
	Preview     PreviewResult `json:"preview"`
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !validator.IsEmpty(id) {
			out = append(out, id)
		}
	}
	return out
}
