package payroll

import (
	"context"
	"fmt"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june2025 = payroll.PayrollPeriod{Month: 6, Year: 2025, Frequency: payroll.FrequencyMonthly}

func TestOverlapDetector_NoMatchingRecords(t *testing.T) {
	quarterly := june2025
	quarterly.Frequency = payroll.FrequencyQuarterly
	may := june2025
	may.Month = 5

	records := &fakeRecords{
		pending: []payroll.PendingPreviewRecord{
			pendingRecord("apr-1", quarterly, "E1"),
			pendingRecord("apr-2", may, "E1"),
			pendingRecord("apr-3", june2025, "E7"),
		},
		saved: []payroll.SavedPayrollRecord{
			savedRecord("pay-1", quarterly, "E1"),
			savedRecord("pay-2", june2025, "E8"),
		},
	}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1", "E2"})

	require.NoError(t, err)
	assert.False(t, verdict.HasDuplicate)
	assert.Equal(t, payroll.OverlapSourceNone, verdict.Source)
	assert.False(t, verdict.Degraded)
}

func TestOverlapDetector_NoIntersectionNeverDuplicates(t *testing.T) {
	frequencies := []payroll.Frequency{payroll.FrequencyMonthly, payroll.FrequencyQuarterly, payroll.FrequencyYearly, payroll.FrequencyOneTime}
	for month := 1; month <= 12; month++ {
		for _, f := range frequencies {
			period := payroll.PayrollPeriod{Month: month, Year: 2025, Frequency: f}
			records := &fakeRecords{
				pending: []payroll.PendingPreviewRecord{pendingRecord("apr", period, "X1", "X2")},
				saved:   []payroll.SavedPayrollRecord{savedRecord("pay", period, "X3")},
			}
			verdict, err := NewOverlapDetector(records, records, OverlapPolicy{ReportAll: true}).
				CheckOverlap(context.Background(), testCompanyID, period, []string{"E1", "E2", "E3"})
			require.NoError(t, err)
			assert.False(t, verdict.HasDuplicate, fmt.Sprintf("%v", period))
		}
	}
}

func TestOverlapDetector_PendingWinsOverSaved(t *testing.T) {
	records := &fakeRecords{
		pending: []payroll.PendingPreviewRecord{pendingRecord("apr-7", june2025, "E2", "E5")},
		saved:   []payroll.SavedPayrollRecord{savedRecord("pay-3", june2025, "E1")},
	}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{ReportAll: true}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1", "E2"})

	require.NoError(t, err)
	assert.True(t, verdict.HasDuplicate)
	assert.Equal(t, payroll.OverlapSourcePreview, verdict.Source)
	assert.Equal(t, "apr-7", verdict.Reference)
	assert.Equal(t, []string{"E2"}, verdict.ConflictingIDs)
	require.Len(t, verdict.Conflicts, 2)
	assert.Equal(t, payroll.OverlapSourcePayroll, verdict.Conflicts[1].Source)
	assert.Equal(t, "pay-3", verdict.Conflicts[1].Reference)
}

func TestOverlapDetector_ReportFirstOnly(t *testing.T) {
	records := &fakeRecords{
		pending: []payroll.PendingPreviewRecord{pendingRecord("apr-7", june2025, "E2")},
		saved:   []payroll.SavedPayrollRecord{savedRecord("pay-3", june2025, "E1")},
	}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1", "E2"})

	require.NoError(t, err)
	require.Len(t, verdict.Conflicts, 1)
	assert.Equal(t, "apr-7", verdict.Conflicts[0].Reference)
}

func TestOverlapDetector_LegacySingularSavedRecord(t *testing.T) {
	id := "E1"
	records := &fakeRecords{saved: []payroll.SavedPayrollRecord{{
		PayrollID:  "pay-legacy",
		Month:      6,
		Year:       2025,
		Frequency:  payroll.FrequencyMonthly,
		EmployeeID: &id,
	}}}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1"})

	require.NoError(t, err)
	assert.True(t, verdict.HasDuplicate)
	assert.Equal(t, payroll.OverlapSourcePayroll, verdict.Source)
	assert.Equal(t, "pay-legacy", verdict.Reference)
}

func TestOverlapDetector_IgnoresRejectedPreviews(t *testing.T) {
	rejected := pendingRecord("apr-x", june2025, "E1")
	rejected.ApprovalStatus = payroll.ApprovalStatusRejected
	records := &fakeRecords{pending: []payroll.PendingPreviewRecord{rejected}}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1"})

	require.NoError(t, err)
	assert.False(t, verdict.HasDuplicate)
}

func TestOverlapDetector_FailOpenIsDegraded(t *testing.T) {
	records := &fakeRecords{
		pendingErr: errUnavailable,
		saved:      []payroll.SavedPayrollRecord{savedRecord("pay-3", june2025, "E1")},
	}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1"})

	require.NoError(t, err)
	assert.True(t, verdict.Degraded)
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "pending approvals")
	// the collection that did load is still checked
	assert.True(t, verdict.HasDuplicate)
	assert.Equal(t, "pay-3", verdict.Reference)
}

func TestOverlapDetector_FailOpenBothCollections(t *testing.T) {
	records := &fakeRecords{pendingErr: errUnavailable, savedErr: errUnavailable}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1"})

	require.NoError(t, err)
	assert.False(t, verdict.HasDuplicate)
	assert.True(t, verdict.Degraded)
	assert.Len(t, verdict.Warnings, 2)
}

func TestOverlapDetector_FailClosed(t *testing.T) {
	records := &fakeRecords{savedErr: errUnavailable}

	_, err := NewOverlapDetector(records, records, OverlapPolicy{FailClosed: true}).
		CheckOverlap(context.Background(), testCompanyID, june2025, []string{"E1"})

	var upstream *payroll.UpstreamServiceError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, payroll.ErrOverlapUnavailable)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestOverlapDetector_EmptyCandidatesSkipsReads(t *testing.T) {
	records := &fakeRecords{pendingErr: errUnavailable, savedErr: errUnavailable}

	verdict, err := NewOverlapDetector(records, records, OverlapPolicy{FailClosed: true}).
		CheckOverlap(context.Background(), testCompanyID, june2025, nil)

	require.NoError(t, err)
	assert.False(t, verdict.HasDuplicate)
	assert.False(t, verdict.Degraded)
}
