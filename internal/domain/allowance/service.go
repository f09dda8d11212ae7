package allowance

import "context"

type AllowanceService interface {
	Assign(ctx context.Context, req AssignAllowanceRequest) (AllowanceResponse, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]AllowanceResponse, error)
	Update(ctx context.Context, req UpdateAllowanceRequest) (AllowanceResponse, error)
	Remove(ctx context.Context, id string) error
	// DueForEmployee lists the allowances paid to the employee in the given month.
	DueForEmployee(ctx context.Context, req DueAllowancesRequest) (DueAllowancesResponse, error)
}
