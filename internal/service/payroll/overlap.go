package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
)

// OverlapPolicy controls how the duplicate check reacts to missing data and
// how many conflicts it reports.
type OverlapPolicy struct {
	// FailClosed blocks the run when a collection cannot be read.
	FailClosed bool
	// ReportAll lists every conflicting record instead of the first one.
	ReportAll bool
}

// OverlapDetector checks whether candidate employees already appear in a
// pending preview or a saved payroll for the same period and frequency.
type OverlapDetector struct {
	pending payroll.PendingApprovalReader
	saved   payroll.SavedPayrollReader
	policy  OverlapPolicy
}

func NewOverlapDetector(pending payroll.PendingApprovalReader, saved payroll.SavedPayrollReader, policy OverlapPolicy) *OverlapDetector {
	return &OverlapDetector{pending: pending, saved: saved, policy: policy}
}

// CheckOverlap returns the verdict for the candidates. Pending previews are
// checked before saved payrolls, so a pending conflict is always the primary one.
// A read failure yields a degraded verdict unless the policy fails closed.
func (d *OverlapDetector) CheckOverlap(ctx context.Context, companyID string, period payroll.PayrollPeriod, candidateIDs []string) (payroll.OverlapVerdict, error) {
	verdict := payroll.OverlapVerdict{}

	candidates := make(map[string]struct{}, len(candidateIDs))
	for _, id := range validator.Dedupe(candidateIDs) {
		candidates[id] = struct{}{}
	}
	if len(candidates) == 0 {
		return verdict, nil
	}

	var conflicts []payroll.OverlapConflict

	pending, err := d.pending.ListPendingApprovals(ctx, companyID)
	if err != nil {
		if err := d.degrade(&verdict, companyID, "pending approvals", err); err != nil {
			return payroll.OverlapVerdict{}, err
		}
	} else {
		active := make([]payroll.PendingPreviewRecord, 0, len(pending))
		for _, p := range pending {
			if p.ApprovalStatus != payroll.ApprovalStatusRejected {
				active = append(active, p)
			}
		}
		conflicts = append(conflicts, findConflicts(active, payroll.OverlapSourcePreview, period, candidateIDs, candidates)...)
	}

	saved, err := d.saved.ListSavedPayrolls(ctx, companyID, period.Month, period.Year)
	if err != nil {
		if err := d.degrade(&verdict, companyID, "saved payrolls", err); err != nil {
			return payroll.OverlapVerdict{}, err
		}
	} else {
		conflicts = append(conflicts, findConflicts(saved, payroll.OverlapSourcePayroll, period, candidateIDs, candidates)...)
	}

	if len(conflicts) == 0 {
		return verdict, nil
	}

	primary := conflicts[0]
	verdict.HasDuplicate = true
	verdict.Source = primary.Source
	verdict.Reference = primary.Reference
	verdict.ConflictingIDs = primary.ConflictingIDs
	if d.policy.ReportAll {
		verdict.Conflicts = conflicts
	} else {
		verdict.Conflicts = conflicts[:1]
	}
	return verdict, nil
}

func (d *OverlapDetector) degrade(verdict *payroll.OverlapVerdict, companyID, collection string, err error) error {
	if d.policy.FailClosed {
		return &payroll.UpstreamServiceError{
			Service: collection,
			Err:     fmt.Errorf("%w: %w", payroll.ErrOverlapUnavailable, err),
		}
	}
	slog.Warn("duplicate check degraded", "company_id", companyID, "collection", collection, "error", err)
	verdict.Degraded = true
	verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("%s could not be read, duplicate check is incomplete: %v", collection, err))
	return nil
}

// findConflicts keeps records of the same period and frequency that share at
// least one employee with the candidates. Conflicting ids follow candidate order.
func findConflicts[R payroll.EmployeeIDSource](records []R, source payroll.OverlapSource, period payroll.PayrollPeriod, order []string, candidates map[string]struct{}) []payroll.OverlapConflict {
	var conflicts []payroll.OverlapConflict
	for _, record := range records {
		if !record.Period().Matches(period) {
			continue
		}

		existing := make(map[string]struct{})
		for _, id := range record.EmployeeIDs() {
			if _, ok := candidates[id]; ok {
				existing[id] = struct{}{}
			}
		}
		if len(existing) == 0 {
			continue
		}

		ids := make([]string, 0, len(existing))
		for _, id := range validator.Dedupe(order) {
			if _, ok := existing[id]; ok {
				ids = append(ids, id)
			}
		}
		conflicts = append(conflicts, payroll.OverlapConflict{
			Source:         source,
			Reference:      record.Reference(),
			ConflictingIDs: ids,
		})
	}
	return conflicts
}
