package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
)

type approvalRepositoryImpl struct {
	db *database.DB
}

// NewApprovalRepository reads the approval queue. Preview metadata and payroll
// lines are stored as JSONB on payroll_approvals.
func NewApprovalRepository(db *database.DB) payroll.PendingApprovalReader {
	return &approvalRepositoryImpl{db: db}
}

// ListPendingApprovals implements payroll.PendingApprovalReader.
func (r *approvalRepositoryImpl) ListPendingApprovals(ctx context.Context, companyID string) ([]payroll.PendingPreviewRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, status, preview_metadata, preview_lines, created_at
		FROM payroll_approvals
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, companyID, payroll.ApprovalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	var records []payroll.PendingPreviewRecord
	for rows.Next() {
		var rec payroll.PendingPreviewRecord
		if err := rows.Scan(&rec.ApprovalID, &rec.ApprovalStatus, &rec.Metadata, &rec.Lines, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending approvals: %w", err)
	}
	return records, nil
}
