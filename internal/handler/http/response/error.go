package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/allowance"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var duplicate *payroll.DuplicateScopeError
	if errors.As(err, &duplicate) {
		ConflictWithDetails(w, "DUPLICATE_SCOPE", duplicate.Error(), map[string]string{
			"source":          string(duplicate.Source),
			"reference":       duplicate.Reference,
			"conflicting_ids": strings.Join(duplicate.ConflictingIDs, ","),
		})
		return
	}

	var upstream *payroll.UpstreamServiceError
	var resolution *payroll.ResolutionError
	if errors.As(err, &upstream) || errors.As(err, &resolution) || errors.Is(err, payroll.ErrOverlapUnavailable) {
		slog.Warn("upstream dependency failed", "error", err)
		BadGateway(w, err.Error(), payroll.IsRetryable(err))
		return
	}

	switch {
	// Payroll run errors
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrBatchNotFound):
		NotFound(w, "Payroll batch not found")
	case errors.Is(err, payroll.ErrIllegalTransition):
		ConflictWithDetails(w, "ILLEGAL_TRANSITION", err.Error(), nil)
	case errors.Is(err, payroll.ErrTransitionInFlight):
		ConflictWithDetails(w, "IN_FLIGHT", err.Error(), nil)
	case errors.Is(err, payroll.ErrScopeLocked):
		ConflictWithDetails(w, "SCOPE_LOCKED", err.Error(), nil)
	case errors.Is(err, payroll.ErrUnresolvedEmployees):
		ConflictWithDetails(w, "UNRESOLVED_EMPLOYEES", err.Error(), nil)
	case errors.Is(err, payroll.ErrNoEmployeesInScope):
		ConflictWithDetails(w, "NO_EMPLOYEES", err.Error(), nil)

	// Allowance and employee errors
	case errors.Is(err, allowance.ErrAllowanceNotFound):
		NotFound(w, "Allowance not found")
	case errors.Is(err, allowance.ErrEmployeeNotFound), errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
