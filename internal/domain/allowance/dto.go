package allowance

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type AssignAllowanceRequest struct {
	EmployeeID string            `json:"-"`
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	IsTaxable  bool              `json:"is_taxable"`
	Frequency  payroll.Frequency `json:"frequency"`
	StartDate  string            `json:"start_date"`
	EndDate    *string           `json:"end_date,omitempty"`

	start time.Time
	end   *time.Time
}

// Validate checks the fields and parses the dates.
func (r *AssignAllowanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "is required"})
	}
	if r.Amount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be non-negative"})
	}
	if !r.Frequency.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be 'monthly', 'quarterly', 'yearly' or 'one_time'"})
	}
	if start, ok := validator.IsValidDate(r.StartDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be in YYYY-MM-DD format"})
	} else {
		r.start = start
	}
	if r.EndDate != nil && !validator.IsEmpty(*r.EndDate) {
		end, ok := validator.IsValidDate(*r.EndDate)
		switch {
		case !ok:
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in YYYY-MM-DD format"})
		case !r.start.IsZero() && end.Before(r.start):
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date"})
		default:
			r.end = &end
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToAllowance builds the entity from a validated request.
func (r *AssignAllowanceRequest) ToAllowance(companyID string) EmployeeAllowance {
	return EmployeeAllowance{
		CompanyID:  companyID,
		EmployeeID: r.EmployeeID,
		Name:       r.Name,
		Amount:     r.Amount,
		IsTaxable:  r.IsTaxable,
		Frequency:  r.Frequency,
		StartDate:  r.start,
		EndDate:    r.end,
	}
}

type UpdateAllowanceRequest struct {
	ID        string             `json:"-"`
	Name      *string            `json:"name,omitempty"`
	Amount    *decimal.Decimal   `json:"amount,omitempty"`
	IsTaxable *bool              `json:"is_taxable,omitempty"`
	Frequency *payroll.Frequency `json:"frequency,omitempty"`
	StartDate *string            `json:"start_date,omitempty"`
	EndDate   *string            `json:"end_date,omitempty"`
	// ClearEndDate removes the end date so the allowance runs indefinitely.
	ClearEndDate bool `json:"clear_end_date,omitempty"`
}

// Apply validates the changes and merges them into a.
func (r *UpdateAllowanceRequest) Apply(a *EmployeeAllowance) error {
	var errs validator.ValidationErrors

	if r.Name != nil {
		if validator.IsEmpty(*r.Name) {
			errs = append(errs, validator.ValidationError{Field: "name", Message: "must not be empty"})
		} else {
			a.Name = *r.Name
		}
	}
	if r.Amount != nil {
		if r.Amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be non-negative"})
		} else {
			a.Amount = *r.Amount
		}
	}
	if r.IsTaxable != nil {
		a.IsTaxable = *r.IsTaxable
	}
	if r.Frequency != nil {
		if !r.Frequency.IsValid() {
			errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be 'monthly', 'quarterly', 'yearly' or 'one_time'"})
		} else {
			a.Frequency = *r.Frequency
		}
	}
	if r.StartDate != nil {
		if start, ok := validator.IsValidDate(*r.StartDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be in YYYY-MM-DD format"})
		} else {
			a.StartDate = start
		}
	}
	if r.ClearEndDate {
		a.EndDate = nil
	} else if r.EndDate != nil {
		if end, ok := validator.IsValidDate(*r.EndDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in YYYY-MM-DD format"})
		} else {
			a.EndDate = &end
		}
	}
	if len(errs) == 0 && a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DueAllowancesRequest struct {
	EmployeeID string
	Month      int
	Year       int
}

func (r *DueAllowancesRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 1 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AllowanceResponse struct {
	ID         string            `json:"id"`
	EmployeeID string            `json:"employee_id"`
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	IsTaxable  bool              `json:"is_taxable"`
	Frequency  payroll.Frequency `json:"frequency"`
	StartDate  string            `json:"start_date"`
	EndDate    *string           `json:"end_date,omitempty"`
}

type DueAllowancesResponse struct {
	EmployeeID string              `json:"employee_id"`
	Month      int                 `json:"month"`
	Year       int                 `json:"year"`
	Items      []AllowanceResponse `json:"items"`
	Total      decimal.Decimal     `json:"total"`
}

// ToResponse converts an allowance to its API shape.
func ToResponse(a EmployeeAllowance) AllowanceResponse {
	var endDate *string
	if a.EndDate != nil {
		s := a.EndDate.Format(dateLayout)
		endDate = &s
	}
	return AllowanceResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Name:       a.Name,
		Amount:     a.Amount,
		IsTaxable:  a.IsTaxable,
		Frequency:  a.Frequency,
		StartDate:  a.StartDate.Format(dateLayout),
		EndDate:    endDate,
	}
}
