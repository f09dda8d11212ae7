package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the directory view of an employee used to resolve payroll scopes.
type Employee struct {
	ID               string
	CompanyID        string
	DepartmentID     *string
	EmployeeCode     string
	FullName         string
	Email            *string
	IsActive         bool
	EmploymentStatus EmploymentStatus
	BaseSalary       *decimal.Decimal
	HireDate         time.Time
	ResignationDate  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "ACTIVE"
	EmploymentStatusSuspended  EmploymentStatus = "SUSPENDED"
	EmploymentStatusResigned   EmploymentStatus = "RESIGNED"
	EmploymentStatusTerminated EmploymentStatus = "TERMINATED"
)

// Payable reports whether the employee belongs in a company or department payroll.
func (e Employee) Payable() bool {
	return e.IsActive && e.EmploymentStatus == EmploymentStatusActive
}
