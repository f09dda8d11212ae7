package allowance

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// EmployeeAllowance - recurring or one-off allowance assigned to an employee
type EmployeeAllowance struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Name       string
	Amount     decimal.Decimal
	IsTaxable  bool
	Frequency  payroll.Frequency
	StartDate  time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Schedule returns the recurrence window of the allowance.
func (a EmployeeAllowance) Schedule() payroll.AllowanceSchedule {
	start := a.StartDate
	return payroll.AllowanceSchedule{Frequency: a.Frequency, StartDate: &start, EndDate: a.EndDate}
}
