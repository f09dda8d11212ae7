package payroll

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRunNotFound         = errors.New("payroll run not found")
	ErrBatchNotFound       = errors.New("payroll batch not found")
	ErrIllegalTransition   = errors.New("illegal payroll run transition")
	ErrTransitionInFlight  = errors.New("another action is already in progress for this payroll run")
	ErrScopeLocked         = errors.New("period and scope cannot change after a preview was requested; reset the run first")
	ErrUnresolvedEmployees = errors.New("some selected employees could not be found in the directory")
	ErrNoEmployeesInScope  = errors.New("no active employees match the selected scope")
	ErrOverlapUnavailable  = errors.New("duplicate check is unavailable")
)

// DuplicateScopeError is returned when employees of the requested scope already
// appear in a pending preview or a saved payroll for the same period and frequency.
type DuplicateScopeError struct {
	Period         PayrollPeriod
	Source         OverlapSource
	Reference      string
	ConflictingIDs []string
}

func (e *DuplicateScopeError) Error() string {
	kind := "saved payroll"
	if e.Source == OverlapSourcePreview {
		kind = "pending approval"
	}
	return fmt.Sprintf("%d employee(s) already included in %s %s for %s",
		len(e.ConflictingIDs), kind, e.Reference, e.Period)
}

// UpstreamServiceError wraps a failed call to an external collaborator.
// The original message is kept for display.
type UpstreamServiceError struct {
	Service string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("%s service failed: %v", e.Service, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// Retryable follows the wrapped error when it knows, and is true otherwise.
func (e *UpstreamServiceError) Retryable() bool {
	var r interface{ Retryable() bool }
	if errors.As(e.Err, &r) {
		return r.Retryable()
	}
	return true
}

// ResolutionError is returned when the employee directory cannot be reached.
type ResolutionError struct {
	Scope ScopeType
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s scope: %v", e.Scope, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Retryable() bool { return true }

// PartialDeliveryError describes a resend where some payslips were not delivered.
// It is a warning attached to the outcome, never a failure of the call.
type PartialDeliveryError struct {
	PayrollID string
	Failed    []EmployeeDelivery
}

func (e *PartialDeliveryError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.EmployeeID)
	}
	return fmt.Sprintf("payslip delivery failed for %d employee(s) of payroll %s: %s",
		len(e.Failed), e.PayrollID, strings.Join(ids, ", "))
}

// IsRetryable reports whether err may succeed if the same action is repeated.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
