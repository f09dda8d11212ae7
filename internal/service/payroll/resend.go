package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
)

// ResendCoordinator re-triggers payslip delivery for a completed batch.
// It never changes payroll amounts and does not depend on any run's stage.
type ResendCoordinator struct {
	batches   payroll.BatchResultStore
	delivery  payroll.PayslipDelivery
	publisher payroll.EventPublisher
}

func NewResendCoordinator(batches payroll.BatchResultStore, delivery payroll.PayslipDelivery, publisher payroll.EventPublisher) *ResendCoordinator {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ResendCoordinator{batches: batches, delivery: delivery, publisher: publisher}
}

// Resend delivers payslips again. An empty employeeIDs resends to the whole batch.
// Failed deliveries are reported through outcome.Warning, not as an error.
func (c *ResendCoordinator) Resend(ctx context.Context, companyID, payrollID string, employeeIDs []string) (payroll.ResendOutcome, error) {
	batch, err := c.batches.GetBatchByPayrollID(ctx, payrollID, companyID)
	if err != nil {
		return payroll.ResendOutcome{}, err
	}

	ids := validator.Dedupe(employeeIDs)
	if len(batch.EmployeeIDs) > 0 {
		var errs validator.ValidationErrors
		for _, id := range ids {
			if !validator.IsInSlice(id, batch.EmployeeIDs) {
				errs = append(errs, validator.ValidationError{
					Field:   "employee_ids",
					Message: fmt.Sprintf("employee %s is not part of payroll %s", id, payrollID),
				})
			}
		}
		if len(errs) > 0 {
			return payroll.ResendOutcome{}, errs
		}
	}
	if len(ids) == 0 {
		ids = batch.EmployeeIDs
	}

	outcome, err := c.delivery.ResendPayslips(ctx, companyID, payrollID, ids)
	if err != nil {
		return payroll.ResendOutcome{}, &payroll.UpstreamServiceError{Service: "payslip delivery", Err: err}
	}

	outcome = tally(outcome)
	if outcome.ErrorCount > 0 {
		warning := &payroll.PartialDeliveryError{PayrollID: payrollID}
		for _, r := range outcome.PerEmployeeResults {
			if r.Status != payroll.DeliveryStatusSent {
				warning.Failed = append(warning.Failed, r)
			}
		}
		outcome.Warning = warning
		slog.Warn("payslip resend partially failed", "company_id", companyID, "payroll_id", payrollID, "failed", outcome.ErrorCount, "sent", outcome.SuccessCount)
	} else {
		slog.Info("payslips resent", "company_id", companyID, "payroll_id", payrollID, "sent", outcome.SuccessCount)
	}

	if err := c.batches.RecordDeliveries(ctx, payrollID, companyID, outcome.PerEmployeeResults); err != nil {
		slog.Error("failed to record payslip deliveries", "payroll_id", payrollID, "error", err)
	}
	c.publisher.PayslipsResent(ctx, companyID, payrollID, outcome)

	return outcome, nil
}

// tally recounts the outcome from per-employee results when they are present.
func tally(outcome payroll.ResendOutcome) payroll.ResendOutcome {
	if len(outcome.PerEmployeeResults) == 0 {
		return outcome
	}
	outcome.SuccessCount, outcome.ErrorCount = 0, 0
	for _, r := range outcome.PerEmployeeResults {
		if r.Status == payroll.DeliveryStatusSent {
			outcome.SuccessCount++
		} else {
			outcome.ErrorCount++
		}
	}
	return outcome
}
