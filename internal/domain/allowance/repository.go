package allowance

import "context"

// AllowanceRepository defines data access methods for employee allowances.
// All methods include companyID parameter to prevent cross-company data access.
type AllowanceRepository interface {
	Create(ctx context.Context, a EmployeeAllowance) (EmployeeAllowance, error)
	GetByID(ctx context.Context, id string, companyID string) (EmployeeAllowance, error)
	ListByEmployee(ctx context.Context, employeeID string, companyID string) ([]EmployeeAllowance, error)
	Update(ctx context.Context, a EmployeeAllowance) (EmployeeAllowance, error)
	Delete(ctx context.Context, id string, companyID string) error
}
