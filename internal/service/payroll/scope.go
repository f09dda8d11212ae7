package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
)

// ScopeResolution is the concrete employee set of a scope selector.
type ScopeResolution struct {
	EmployeeIDs []string
	// Unresolved holds individual ids that are not in the directory.
	Unresolved []string
	Warnings   []string
}

// ScopeResolver turns a scope selector into employee ids using the employee directory.
type ScopeResolver struct {
	directory employee.EmployeeRepository
}

func NewScopeResolver(directory employee.EmployeeRepository) *ScopeResolver {
	return &ScopeResolver{directory: directory}
}

// Resolve validates the selector before any directory call. Directory failures
// are returned as *payroll.ResolutionError.
func (r *ScopeResolver) Resolve(ctx context.Context, companyID string, scope payroll.ScopeSelector) (ScopeResolution, error) {
	if errs := scope.Validate(); len(errs) > 0 {
		return ScopeResolution{}, errs
	}

	switch scope.Type {
	case payroll.ScopeCompany:
		employees, err := r.directory.ListByCompany(ctx, companyID)
		if err != nil {
			return ScopeResolution{}, &payroll.ResolutionError{Scope: scope.Type, Err: err}
		}
		return ScopeResolution{EmployeeIDs: payableIDs(employees)}, nil

	case payroll.ScopeDepartment:
		var ids []string
		for _, departmentID := range validator.Dedupe(scope.DepartmentIDs) {
			employees, err := r.directory.ListByDepartment(ctx, companyID, departmentID)
			if err != nil {
				return ScopeResolution{}, &payroll.ResolutionError{
					Scope: scope.Type,
					Err:   fmt.Errorf("department %s: %w", departmentID, err),
				}
			}
			ids = append(ids, payableIDs(employees)...)
		}
		return ScopeResolution{EmployeeIDs: validator.Dedupe(ids)}, nil

	default:
		requested := validator.Dedupe(scope.EmployeeIDs)
		employees, err := r.directory.GetByIDs(ctx, companyID, requested)
		if err != nil {
			return ScopeResolution{}, &payroll.ResolutionError{Scope: scope.Type, Err: err}
		}

		known := make(map[string]struct{}, len(employees))
		for _, e := range employees {
			known[e.ID] = struct{}{}
		}

		res := ScopeResolution{EmployeeIDs: make([]string, 0, len(requested))}
		for _, id := range requested {
			if _, ok := known[id]; ok {
				res.EmployeeIDs = append(res.EmployeeIDs, id)
				continue
			}
			res.Unresolved = append(res.Unresolved, id)
			res.Warnings = append(res.Warnings, fmt.Sprintf("employee %s was not found in the directory", id))
		}
		return res, nil
	}
}

func payableIDs(employees []employee.Employee) []string {
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		if e.Payable() {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
