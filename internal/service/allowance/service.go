package allowance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/allowance"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
)

type AllowanceServiceImpl struct {
	allowanceRepo allowance.AllowanceRepository
	employeeRepo  employee.EmployeeRepository
}

func NewAllowanceService(
	allowanceRepo allowance.AllowanceRepository,
	employeeRepo employee.EmployeeRepository,
) allowance.AllowanceService {
	return &AllowanceServiceImpl{
		allowanceRepo: allowanceRepo,
		employeeRepo:  employeeRepo,
	}
}

// Helper to get company_id from JWT context
func getCompanyFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", fmt.Errorf("company_id claim is missing or invalid")
	}
	return companyID, nil
}

// checkSchedule rejects windows that contain no processing month.
func checkSchedule(a allowance.EmployeeAllowance) error {
	result := a.Schedule().Validate()
	if result.IsValid {
		return nil
	}
	return validator.ValidationErrors{{Field: "end_date", Message: result.Message}}
}

func (s *AllowanceServiceImpl) Assign(ctx context.Context, req allowance.AssignAllowanceRequest) (allowance.AllowanceResponse, error) {
	if err := req.Validate(); err != nil {
		return allowance.AllowanceResponse{}, err
	}

	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return allowance.AllowanceResponse{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, companyID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return allowance.AllowanceResponse{}, allowance.ErrEmployeeNotFound
		}
		return allowance.AllowanceResponse{}, err
	}

	a := req.ToAllowance(companyID)
	if err := checkSchedule(a); err != nil {
		return allowance.AllowanceResponse{}, err
	}

	created, err := s.allowanceRepo.Create(ctx, a)
	if err != nil {
		return allowance.AllowanceResponse{}, err
	}

	slog.Info("allowance assigned", "company_id", companyID, "employee_id", created.EmployeeID, "allowance_id", created.ID, "frequency", created.Frequency)
	return allowance.ToResponse(created), nil
}

func (s *AllowanceServiceImpl) ListForEmployee(ctx context.Context, employeeID string) ([]allowance.AllowanceResponse, error) {
	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.allowanceRepo.ListByEmployee(ctx, employeeID, companyID)
	if err != nil {
		return nil, err
	}

	result := make([]allowance.AllowanceResponse, 0, len(items))
	for _, a := range items {
		result = append(result, allowance.ToResponse(a))
	}
	return result, nil
}

func (s *AllowanceServiceImpl) Update(ctx context.Context, req allowance.UpdateAllowanceRequest) (allowance.AllowanceResponse, error) {
	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return allowance.AllowanceResponse{}, err
	}

	current, err := s.allowanceRepo.GetByID(ctx, req.ID, companyID)
	if err != nil {
		return allowance.AllowanceResponse{}, err
	}

	if err := req.Apply(&current); err != nil {
		return allowance.AllowanceResponse{}, err
	}
	if err := checkSchedule(current); err != nil {
		return allowance.AllowanceResponse{}, err
	}

	updated, err := s.allowanceRepo.Update(ctx, current)
	if err != nil {
		return allowance.AllowanceResponse{}, err
	}
	return allowance.ToResponse(updated), nil
}

func (s *AllowanceServiceImpl) Remove(ctx context.Context, id string) error {
	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return err
	}
	return s.allowanceRepo.Delete(ctx, id, companyID)
}

func (s *AllowanceServiceImpl) DueForEmployee(ctx context.Context, req allowance.DueAllowancesRequest) (allowance.DueAllowancesResponse, error) {
	if err := req.Validate(); err != nil {
		return allowance.DueAllowancesResponse{}, err
	}

	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return allowance.DueAllowancesResponse{}, err
	}

	items, err := s.allowanceRepo.ListByEmployee(ctx, req.EmployeeID, companyID)
	if err != nil {
		return allowance.DueAllowancesResponse{}, err
	}

	resp := allowance.DueAllowancesResponse{
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Items:      []allowance.AllowanceResponse{},
		Total:      decimal.Zero,
	}
	for _, a := range items {
		if !a.Schedule().DueIn(time.Month(req.Month), req.Year) {
			continue
		}
		resp.Items = append(resp.Items, allowance.ToResponse(a))
		resp.Total = resp.Total.Add(a.Amount)
	}
	return resp, nil
}
