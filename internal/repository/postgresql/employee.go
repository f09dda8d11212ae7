package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, company_id, department_id, employee_code, full_name, email, is_active,
	employment_status, base_salary, hire_date, resignation_date, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	var status string
	err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.DepartmentID, &emp.EmployeeCode, &emp.FullName, &emp.Email,
		&emp.IsActive, &status, &emp.BaseSalary, &emp.HireDate, &emp.ResignationDate,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	// Older rows store the status in lower case.
	emp.EmploymentStatus = employee.EmploymentStatus(strings.ToUpper(status))
	return emp, err
}

func (e *employeeRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by id %s: %w", id, err)
	}
	return emp, nil
}

// ListByCompany implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY employee_code`
	return e.list(ctx, query, companyID)
}

// ListByDepartment implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListByDepartment(ctx context.Context, companyID string, departmentID string) ([]employee.Employee, error) {
	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND department_id = $2 AND deleted_at IS NULL
		ORDER BY employee_code`
	return e.list(ctx, query, companyID, departmentID)
}

// GetByIDs implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND id = ANY($2) AND deleted_at IS NULL`
	return e.list(ctx, query, companyID, ids)
}
