package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/allowance"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type allowanceRepositoryImpl struct {
	db *database.DB
}

func NewAllowanceRepository(db *database.DB) allowance.AllowanceRepository {
	return &allowanceRepositoryImpl{db: db}
}

const allowanceColumns = `
	id, company_id, employee_id, name, amount, is_taxable, frequency, start_date, end_date, created_at, updated_at`

func scanAllowance(row pgx.Row) (allowance.EmployeeAllowance, error) {
	var a allowance.EmployeeAllowance
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.EmployeeID, &a.Name, &a.Amount, &a.IsTaxable,
		&a.Frequency, &a.StartDate, &a.EndDate, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// Create implements allowance.AllowanceRepository.
func (r *allowanceRepositoryImpl) Create(ctx context.Context, a allowance.EmployeeAllowance) (allowance.EmployeeAllowance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_allowances (company_id, employee_id, name, amount, is_taxable, frequency, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING` + allowanceColumns

	created, err := scanAllowance(q.QueryRow(ctx, query,
		a.CompanyID, a.EmployeeID, a.Name, a.Amount, a.IsTaxable, a.Frequency, a.StartDate, a.EndDate,
	))
	if err != nil {
		return allowance.EmployeeAllowance{}, fmt.Errorf("failed to create allowance: %w", err)
	}
	return created, nil
}

// GetByID implements allowance.AllowanceRepository.
func (r *allowanceRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (allowance.EmployeeAllowance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + allowanceColumns + `
		FROM employee_allowances
		WHERE id = $1 AND company_id = $2`

	a, err := scanAllowance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return allowance.EmployeeAllowance{}, allowance.ErrAllowanceNotFound
		}
		return allowance.EmployeeAllowance{}, fmt.Errorf("failed to get allowance %s: %w", id, err)
	}
	return a, nil
}

// ListByEmployee implements allowance.AllowanceRepository.
func (r *allowanceRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string, companyID string) ([]allowance.EmployeeAllowance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + allowanceColumns + `
		FROM employee_allowances
		WHERE employee_id = $1 AND company_id = $2
		ORDER BY start_date, created_at`

	rows, err := q.Query(ctx, query, employeeID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allowances: %w", err)
	}
	defer rows.Close()

	var items []allowance.EmployeeAllowance
	for rows.Next() {
		a, err := scanAllowance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allowance: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allowances: %w", err)
	}
	return items, nil
}

// Update implements allowance.AllowanceRepository.
func (r *allowanceRepositoryImpl) Update(ctx context.Context, a allowance.EmployeeAllowance) (allowance.EmployeeAllowance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employee_allowances
		SET name = $1, amount = $2, is_taxable = $3, frequency = $4, start_date = $5, end_date = $6, updated_at = NOW()
		WHERE id = $7 AND company_id = $8
		RETURNING` + allowanceColumns

	updated, err := scanAllowance(q.QueryRow(ctx, query,
		a.Name, a.Amount, a.IsTaxable, a.Frequency, a.StartDate, a.EndDate, a.ID, a.CompanyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return allowance.EmployeeAllowance{}, allowance.ErrAllowanceNotFound
		}
		return allowance.EmployeeAllowance{}, fmt.Errorf("failed to update allowance %s: %w", a.ID, err)
	}
	return updated, nil
}

// Delete implements allowance.AllowanceRepository.
func (r *allowanceRepositoryImpl) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM employee_allowances WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete allowance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return allowance.ErrAllowanceNotFound
	}
	return nil
}
