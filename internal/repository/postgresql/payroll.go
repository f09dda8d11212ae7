package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// PayrollRepository reads saved payrolls and keeps the results of completed batches.
type PayrollRepository interface {
	payroll.SavedPayrollReader
	payroll.BatchResultStore
}

type payrollRepositoryImpl struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) PayrollRepository {
	return &payrollRepositoryImpl{db: db}
}

// ListSavedPayrolls implements payroll.SavedPayrollReader. Legacy rows carry a
// single employee_id instead of the employee_ids array.
func (r *payrollRepositoryImpl) ListSavedPayrolls(ctx context.Context, companyID string, month, year int) ([]payroll.SavedPayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, period_month, period_year, frequency, employee_ids, employee_id, created_at
		FROM payrolls
		WHERE company_id = $1 AND period_month = $2 AND period_year = $3
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, companyID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved payrolls: %w", err)
	}
	defer rows.Close()

	var records []payroll.SavedPayrollRecord
	for rows.Next() {
		var rec payroll.SavedPayrollRecord
		err := rows.Scan(&rec.PayrollID, &rec.Month, &rec.Year, &rec.Frequency, &rec.EmployeeIDList, &rec.EmployeeID, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved payroll: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved payrolls: %w", err)
	}
	return records, nil
}

// SaveBatch implements payroll.BatchResultStore. A batch is written once;
// saving the same payroll id again is a no-op.
func (r *payrollRepositoryImpl) SaveBatch(ctx context.Context, batch payroll.StoredBatch) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_batches (
			payroll_id, approval_id, company_id, run_id, period_month, period_year, frequency,
			employee_ids, successful, duplicates, failed, total_employees, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (payroll_id) DO NOTHING
	`

	summary := batch.ProcessingSummary
	_, err := q.Exec(ctx, query,
		batch.PayrollID, batch.ApprovalID, batch.CompanyID, batch.RunID,
		batch.Period.Month, batch.Period.Year, batch.Period.Frequency, batch.EmployeeIDs,
		summary.Successful, summary.Duplicates, summary.Failed, summary.TotalEmployees, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payroll batch %s: %w", batch.PayrollID, err)
	}
	return nil
}

// GetBatchByPayrollID implements payroll.BatchResultStore.
func (r *payrollRepositoryImpl) GetBatchByPayrollID(ctx context.Context, payrollID string, companyID string) (payroll.StoredBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT payroll_id, approval_id, company_id, run_id, period_month, period_year, frequency,
			employee_ids, successful, duplicates, failed, total_employees, created_at
		FROM payroll_batches
		WHERE payroll_id = $1 AND company_id = $2
	`

	var b payroll.StoredBatch
	err := q.QueryRow(ctx, query, payrollID, companyID).Scan(
		&b.PayrollID, &b.ApprovalID, &b.CompanyID, &b.RunID,
		&b.Period.Month, &b.Period.Year, &b.Period.Frequency, &b.EmployeeIDs,
		&b.ProcessingSummary.Successful, &b.ProcessingSummary.Duplicates,
		&b.ProcessingSummary.Failed, &b.ProcessingSummary.TotalEmployees, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.StoredBatch{}, payroll.ErrBatchNotFound
		}
		return payroll.StoredBatch{}, fmt.Errorf("failed to get payroll batch %s: %w", payrollID, err)
	}
	return b, nil
}

// RecordDeliveries implements payroll.BatchResultStore. Each call appends one
// attempt per employee to the delivery log.
func (r *payrollRepositoryImpl) RecordDeliveries(ctx context.Context, payrollID string, companyID string, results []payroll.EmployeeDelivery) error {
	if len(results) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		batch := &pgx.Batch{}
		for _, res := range results {
			batch.Queue(`
				INSERT INTO payroll_payslip_deliveries (payroll_id, company_id, employee_id, status, payslip_url, message, attempted_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
			`, payrollID, companyID, res.EmployeeID, res.Status, res.PayslipURL, res.Message)
		}

		tx, ok := q.(pgx.Tx)
		if !ok {
			return fmt.Errorf("delivery log requires a transaction")
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to record payslip deliveries for payroll %s: %w", payrollID, err)
		}
		return nil
	})
}
