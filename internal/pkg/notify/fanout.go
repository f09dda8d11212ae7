package notify

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
)

// Fanout forwards every event to each publisher in order. Nil entries are skipped.
type Fanout []payroll.EventPublisher

func NewFanout(publishers ...payroll.EventPublisher) Fanout {
	out := make(Fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) RunTransitioned(ctx context.Context, companyID string, run payroll.RunResponse) {
	for _, p := range f {
		p.RunTransitioned(ctx, companyID, run)
	}
}

func (f Fanout) BatchCompleted(ctx context.Context, batch payroll.StoredBatch) {
	for _, p := range f {
		p.BatchCompleted(ctx, batch)
	}
}

func (f Fanout) PayslipsResent(ctx context.Context, companyID string, payrollID string, outcome payroll.ResendOutcome) {
	for _, p := range f {
		p.PayslipsResent(ctx, companyID, payrollID, outcome)
	}
}
