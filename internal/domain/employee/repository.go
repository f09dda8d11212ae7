package employee

import "context"

// EmployeeRepository is the employee directory consulted by the scope resolver.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	ListByCompany(ctx context.Context, companyID string) ([]Employee, error)
	ListByDepartment(ctx context.Context, companyID string, departmentID string) ([]Employee, error)
	// GetByIDs returns the employees that exist; missing ids are simply absent.
	GetByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error)
}
