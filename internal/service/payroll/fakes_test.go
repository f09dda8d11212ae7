package payroll

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCompanyID = "company-1"

var errUnavailable = errors.New("connection refused")

type fakeDirectory struct {
	mu        sync.Mutex
	employees []employee.Employee
	err       error
	calls     int
}

func (d *fakeDirectory) record() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func (d *fakeDirectory) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	if err := d.record(); err != nil {
		return employee.Employee{}, err
	}
	for _, e := range d.employees {
		if e.ID == id && e.CompanyID == companyID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (d *fakeDirectory) ListByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	if err := d.record(); err != nil {
		return nil, err
	}
	var out []employee.Employee
	for _, e := range d.employees {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListByDepartment(ctx context.Context, companyID string, departmentID string) ([]employee.Employee, error) {
	if err := d.record(); err != nil {
		return nil, err
	}
	var out []employee.Employee
	for _, e := range d.employees {
		if e.CompanyID == companyID && e.DepartmentID != nil && *e.DepartmentID == departmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	if err := d.record(); err != nil {
		return nil, err
	}
	var out []employee.Employee
	for _, e := range d.employees {
		for _, id := range ids {
			if e.ID == id && e.CompanyID == companyID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func activeEmployee(id, department string) employee.Employee {
	dept := department
	return employee.Employee{
		ID:               id,
		CompanyID:        testCompanyID,
		DepartmentID:     &dept,
		IsActive:         true,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
}

type fakeRecords struct {
	pending    []payroll.PendingPreviewRecord
	saved      []payroll.SavedPayrollRecord
	pendingErr error
	savedErr   error
}

func (f *fakeRecords) ListPendingApprovals(ctx context.Context, companyID string) ([]payroll.PendingPreviewRecord, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return f.pending, nil
}

func (f *fakeRecords) ListSavedPayrolls(ctx context.Context, companyID string, month, year int) ([]payroll.SavedPayrollRecord, error) {
	if f.savedErr != nil {
		return nil, f.savedErr
	}
	var out []payroll.SavedPayrollRecord
	for _, r := range f.saved {
		if r.Month == month && r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func pendingRecord(approvalID string, period payroll.PayrollPeriod, ids ...string) payroll.PendingPreviewRecord {
	lines := make([]payroll.PayrollLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, payroll.PayrollLine{EmployeeID: id, NetPay: decimal.NewFromInt(1000)})
	}
	return payroll.PendingPreviewRecord{
		ApprovalID:     approvalID,
		ApprovalStatus: payroll.ApprovalStatusPending,
		Metadata:       payroll.PreviewMetadata{Month: period.Month, Year: period.Year, Frequency: period.Frequency},
		Lines:          lines,
	}
}

func savedRecord(payrollID string, period payroll.PayrollPeriod, ids ...string) payroll.SavedPayrollRecord {
	return payroll.SavedPayrollRecord{
		PayrollID:      payrollID,
		Month:          period.Month,
		Year:           period.Year,
		Frequency:      period.Frequency,
		EmployeeIDList: ids,
	}
}

type fakeEngine struct {
	mu          sync.Mutex
	previewErr  error
	submitErr   error
	resendErr   error
	previewReqs []payroll.PreviewRequest
	payloads    []payroll.SubmitPayload
	resendIDs   [][]string
	deliveries  []payroll.EmployeeDelivery
	// block, when set, holds GetPayrollPreview until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (e *fakeEngine) GetPayrollPreview(ctx context.Context, companyID string, req payroll.PreviewRequest) (payroll.PreviewResult, error) {
	if e.block != nil {
		e.entered <- struct{}{}
		<-e.block
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previewReqs = append(e.previewReqs, req)
	if e.previewErr != nil {
		return payroll.PreviewResult{}, e.previewErr
	}

	result := payroll.PreviewResult{EmployeeCount: len(req.EmployeeIDs)}
	for _, id := range req.EmployeeIDs {
		line := payroll.PayrollLine{
			EmployeeID: id,
			BaseSalary: decimal.NewFromInt(5000000),
			GrossPay:   decimal.NewFromInt(5000000),
			PAYE:       decimal.NewFromInt(250000),
			NetPay:     decimal.NewFromInt(4750000),
		}
		result.LineItems = append(result.LineItems, line)
		result.Totals.GrossPay = result.Totals.GrossPay.Add(line.GrossPay)
		result.Totals.PAYE = result.Totals.PAYE.Add(line.PAYE)
		result.Totals.NetPay = result.Totals.NetPay.Add(line.NetPay)
	}
	return result, nil
}

func (e *fakeEngine) SubmitForApproval(ctx context.Context, payload payroll.SubmitPayload) (payroll.BatchApprovalResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, payload)
	if e.submitErr != nil {
		return payroll.BatchApprovalResult{}, e.submitErr
	}
	n := len(payload.EmployeeIDs)
	return payroll.BatchApprovalResult{
		ApprovalID:        "apr-100",
		PayrollID:         "pay-100",
		ProcessingSummary: payroll.ProcessingSummary{Successful: n, TotalEmployees: n},
	}, nil
}

func (e *fakeEngine) ResendPayslips(ctx context.Context, companyID string, payrollID string, employeeIDs []string) (payroll.ResendOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resendIDs = append(e.resendIDs, employeeIDs)
	if e.resendErr != nil {
		return payroll.ResendOutcome{}, e.resendErr
	}
	return payroll.ResendOutcome{PerEmployeeResults: e.deliveries}, nil
}

type fakeBatchStore struct {
	mu         sync.Mutex
	batches    map[string]payroll.StoredBatch
	deliveries map[string][]payroll.EmployeeDelivery
	saveErr    error
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{
		batches:    map[string]payroll.StoredBatch{},
		deliveries: map[string][]payroll.EmployeeDelivery{},
	}
}

func (s *fakeBatchStore) SaveBatch(ctx context.Context, batch payroll.StoredBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.batches[batch.PayrollID] = batch
	return nil
}

func (s *fakeBatchStore) GetBatchByPayrollID(ctx context.Context, payrollID string, companyID string) (payroll.StoredBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[payrollID]
	if !ok || b.CompanyID != companyID {
		return payroll.StoredBatch{}, payroll.ErrBatchNotFound
	}
	return b, nil
}

func (s *fakeBatchStore) RecordDeliveries(ctx context.Context, payrollID string, companyID string, results []payroll.EmployeeDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[payrollID] = append(s.deliveries[payrollID], results...)
	return nil
}

type recordingPublisher struct {
	mu          sync.Mutex
	transitions []payroll.RunStage
	batches     []payroll.StoredBatch
	resends     []payroll.ResendOutcome
}

func (p *recordingPublisher) RunTransitioned(ctx context.Context, companyID string, run payroll.RunResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, run.Stage)
}

func (p *recordingPublisher) BatchCompleted(ctx context.Context, batch payroll.StoredBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
}

func (p *recordingPublisher) PayslipsResent(ctx context.Context, companyID string, payrollID string, outcome payroll.ResendOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resends = append(p.resends, outcome)
}

func authContext(t *testing.T, companyID string) context.Context {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret-key-for-jwt"), nil)
	token, _, err := tokenAuth.Encode(map[string]interface{}{"company_id": companyID, "user_id": "user-1"})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

type harness struct {
	directory *fakeDirectory
	records   *fakeRecords
	engine    *fakeEngine
	batches   *fakeBatchStore
	publisher *recordingPublisher
	service   payroll.PayrollBatchService
}

func newHarness(opts Options) *harness {
	return newHarnessWithPolicy(opts, OverlapPolicy{})
}

func newHarnessWithPolicy(opts Options, overlap OverlapPolicy) *harness {
	h := &harness{
		directory: &fakeDirectory{employees: []employee.Employee{
			activeEmployee("E1", "D1"),
			activeEmployee("E2", "D1"),
			activeEmployee("E3", "D2"),
		}},
		records:   &fakeRecords{},
		engine:    &fakeEngine{},
		batches:   newFakeBatchStore(),
		publisher: &recordingPublisher{},
	}
	if opts.MinYear == 0 {
		opts.MinYear = 2000
	}
	h.service = NewPayrollService(
		NewScopeResolver(h.directory),
		NewOverlapDetector(h.records, h.records, overlap),
		h.engine,
		h.engine,
		h.batches,
		NewResendCoordinator(h.batches, h.engine, h.publisher),
		h.publisher,
		opts,
	)
	return h
}
