package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// Options holds the policy values the service applies to every run.
type Options struct {
	MinYear         int
	AllowUnresolved bool
	Now             func() time.Time
}

type run struct {
	mu        sync.Mutex
	id        string
	companyID string
	state     RunState
	busy      bool
	history   []payroll.Transition
	createdAt time.Time
	updatedAt time.Time
}

type PayrollServiceImpl struct {
	resolver  *ScopeResolver
	detector  *OverlapDetector
	previewer payroll.PreviewGenerator
	submitter payroll.ApprovalSubmitter
	batches   payroll.BatchResultStore
	resender  *ResendCoordinator
	publisher payroll.EventPublisher
	opts      Options

	mu   sync.RWMutex
	runs map[string]*run
}

func NewPayrollService(
	resolver *ScopeResolver,
	detector *OverlapDetector,
	previewer payroll.PreviewGenerator,
	submitter payroll.ApprovalSubmitter,
	batches payroll.BatchResultStore,
	resender *ResendCoordinator,
	publisher payroll.EventPublisher,
	opts Options,
) payroll.PayrollBatchService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PayrollServiceImpl{
		resolver:  resolver,
		detector:  detector,
		previewer: previewer,
		submitter: submitter,
		batches:   batches,
		resender:  resender,
		publisher: publisher,
		opts:      opts,
		runs:      make(map[string]*run),
	}
}

// Helper to get company_id and user_id from JWT context
func getClaimsFromContext(ctx context.Context) (companyID, userID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", fmt.Errorf("company_id claim is missing or invalid")
	}

	userID, _ = claims["user_id"].(string)

	return companyID, userID, nil
}

// ========== RUN REGISTRY ==========

func (s *PayrollServiceImpl) lookup(ctx context.Context, runID string) (*run, string, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return nil, "", err
	}
	if !validator.IsValidUUID(runID) {
		return nil, "", payroll.ErrRunNotFound
	}

	s.mu.RLock()
	r, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok || r.companyID != companyID {
		return nil, "", payroll.ErrRunNotFound
	}
	return r, companyID, nil
}

// PruneRuns drops runs that have not changed for idleFor. Runs with a call in
// flight are kept whatever their age.
func (s *PayrollServiceImpl) PruneRuns(ctx context.Context, idleFor time.Duration) int {
	cutoff := s.opts.Now().Add(-idleFor)

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, r := range s.runs {
		r.mu.Lock()
		stale := !r.busy && !r.state.Stage.InFlight() && r.updatedAt.Before(cutoff)
		stage := r.state.Stage
		r.mu.Unlock()
		if !stale {
			continue
		}
		delete(s.runs, id)
		pruned++
		slog.DebugContext(ctx, "payroll run pruned", "run_id", id, "company_id", r.companyID, "stage", stage)
	}
	return pruned
}

// begin claims the run for one transition. The caller must call end.
func (s *PayrollServiceImpl) begin(r *run, probe Event) (RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return RunState{}, payroll.ErrTransitionInFlight
	}
	if probe != nil {
		if err := CanApply(r.state, probe); err != nil {
			return RunState{}, err
		}
	}
	r.busy = true
	return r.state, nil
}

func (s *PayrollServiceImpl) end(r *run) {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

// apply runs the reducer, records history and publishes the new state.
func (s *PayrollServiceImpl) apply(ctx context.Context, r *run, event Event, reason string) (payroll.RunResponse, error) {
	r.mu.Lock()
	next, err := Reduce(r.state, event)
	if err != nil {
		r.mu.Unlock()
		return payroll.RunResponse{}, err
	}

	now := s.opts.Now()
	r.history = append(r.history, payroll.Transition{
		From:   r.state.Stage,
		To:     next.Stage,
		Event:  event.Name(),
		Reason: reason,
		At:     now,
	})
	r.state = next
	r.updatedAt = now
	resp := r.response()
	r.mu.Unlock()

	slog.Info("payroll run transition",
		"run_id", r.id, "company_id", r.companyID, "event", event.Name(),
		"from", resp.History[len(resp.History)-1].From, "to", resp.Stage)
	s.publisher.RunTransitioned(ctx, r.companyID, resp)
	return resp, nil
}

func (r *run) response() payroll.RunResponse {
	resp := payroll.RunResponse{
		ID:        r.id,
		Stage:     r.state.Stage,
		Period:    r.state.Form.Period,
		Scope:     r.state.Form.Scope,
		Locked:    r.state.Locked(),
		InFlight:  r.state.Stage.InFlight(),
		Overlap:   r.state.Overlap,
		Preview:   r.state.Preview,
		Result:    r.state.Result,
		Failure:   r.state.Failure,
		History:   append([]payroll.Transition(nil), r.history...),
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
	if resp.History == nil {
		resp.History = []payroll.Transition{}
	}
	if r.state.Resolution != nil {
		resp.ResolvedEmployeeIDs = r.state.Resolution.EmployeeIDs
		resp.ScopeWarnings = r.state.Resolution.Warnings
	}
	return resp
}

func (s *PayrollServiceImpl) StartRun(ctx context.Context, req payroll.StartRunRequest) (payroll.RunResponse, error) {
	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to generate run id: %w", err)
	}

	now := s.opts.Now()
	r := &run{
		id:        id.String(),
		companyID: companyID,
		state: RunState{
			Stage: payroll.StageIdle,
			Form:  payroll.RunForm{Period: req.Period, Scope: req.Scope},
		},
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	s.runs[r.id] = r
	s.mu.Unlock()

	slog.Info("payroll run started", "run_id", r.id, "company_id", companyID, "user_id", userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response(), nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, runID string) (payroll.RunResponse, error) {
	r, _, err := s.lookup(ctx, runID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response(), nil
}

func (s *PayrollServiceImpl) UpdateDraft(ctx context.Context, req payroll.UpdateDraftRequest) (payroll.RunResponse, error) {
	r, _, err := s.lookup(ctx, req.RunID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	state, err := s.begin(r, DraftChanged{})
	if err != nil {
		return payroll.RunResponse{}, err
	}
	defer s.end(r)

	form := state.Form
	if req.Period != nil {
		form.Period = *req.Period
	}
	if req.Scope != nil {
		form.Scope = *req.Scope
	}
	return s.apply(ctx, r, DraftChanged{Form: form}, "")
}

// ========== PREVIEW ==========

func (s *PayrollServiceImpl) RequestPreview(ctx context.Context, req payroll.RequestPreviewRequest) (payroll.RunResponse, error) {
	r, companyID, err := s.lookup(ctx, req.RunID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	state, err := s.begin(r, PreviewStarted{})
	if err != nil {
		return payroll.RunResponse{}, err
	}
	defer s.end(r)

	return s.preview(ctx, r, companyID, state.Form, req.AllowUnresolved || s.opts.AllowUnresolved)
}

// preview runs the gate (form, scope, duplicates) and then the preview call.
// Gate failures leave the stage unchanged; a failed preview call moves the run to error.
func (s *PayrollServiceImpl) preview(ctx context.Context, r *run, companyID string, form payroll.RunForm, allowUnresolved bool) (payroll.RunResponse, error) {
	if err := form.Validate(s.opts.MinYear); err != nil {
		return payroll.RunResponse{}, err
	}

	resolution, err := s.resolver.Resolve(ctx, companyID, form.Scope)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	if len(resolution.Unresolved) > 0 && !allowUnresolved {
		return payroll.RunResponse{}, fmt.Errorf("%w: %s", payroll.ErrUnresolvedEmployees, strings.Join(resolution.Unresolved, ", "))
	}
	if len(resolution.EmployeeIDs) == 0 {
		return payroll.RunResponse{}, payroll.ErrNoEmployeesInScope
	}

	verdict, err := s.detector.CheckOverlap(ctx, companyID, form.Period, resolution.EmployeeIDs)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	var reason string
	if verdict.Degraded {
		reason = strings.Join(verdict.Warnings, "; ")
	}
	if _, err := s.apply(ctx, r, OverlapChecked{Verdict: verdict}, reason); err != nil {
		return payroll.RunResponse{}, err
	}
	if verdict.HasDuplicate {
		slog.Warn("payroll preview blocked by duplicate",
			"run_id", r.id, "company_id", companyID, "source", verdict.Source, "reference", verdict.Reference)
		return payroll.RunResponse{}, &payroll.DuplicateScopeError{
			Period:         form.Period,
			Source:         verdict.Source,
			Reference:      verdict.Reference,
			ConflictingIDs: verdict.ConflictingIDs,
		}
	}

	if _, err := s.apply(ctx, r, PreviewStarted{Resolution: resolution, AllowUnresolved: allowUnresolved}, ""); err != nil {
		return payroll.RunResponse{}, err
	}

	result, err := s.previewer.GetPayrollPreview(ctx, companyID, previewRequest(form, resolution.EmployeeIDs))
	if err != nil {
		upstreamErr := &payroll.UpstreamServiceError{Service: "payroll preview", Err: err}
		slog.Error("payroll preview failed", "run_id", r.id, "company_id", companyID, "error", err)
		return s.apply(ctx, r, PreviewFailed{Err: upstreamErr}, upstreamErr.Error())
	}
	return s.apply(ctx, r, PreviewSucceeded{Preview: result}, "")
}

func previewRequest(form payroll.RunForm, employeeIDs []string) payroll.PreviewRequest {
	req := payroll.PreviewRequest{
		Month:       form.Period.Month,
		Year:        form.Period.Year,
		Frequency:   form.Period.Frequency,
		Scope:       form.Scope.Type,
		EmployeeIDs: employeeIDs,
	}
	switch form.Scope.Type {
	case payroll.ScopeDepartment:
		req.ScopeIDs = form.Scope.DepartmentIDs
	case payroll.ScopeIndividual:
		req.ScopeIDs = employeeIDs
	}
	return req
}

// ========== SUBMISSION ==========

func (s *PayrollServiceImpl) SubmitForApproval(ctx context.Context, runID string) (payroll.RunResponse, error) {
	r, companyID, err := s.lookup(ctx, runID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	state, err := s.begin(r, SubmitStarted{})
	if err != nil {
		return payroll.RunResponse{}, err
	}
	defer s.end(r)

	if state.Stage != payroll.StagePreviewed {
		return payroll.RunResponse{}, fmt.Errorf("%w: submit requires a previewed run, use retry after a failed submission", payroll.ErrIllegalTransition)
	}
	return s.submit(ctx, r, companyID)
}

func (s *PayrollServiceImpl) submit(ctx context.Context, r *run, companyID string) (payroll.RunResponse, error) {
	if _, err := s.apply(ctx, r, SubmitStarted{}, ""); err != nil {
		return payroll.RunResponse{}, err
	}

	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	var employeeIDs []string
	if state.Resolution != nil {
		employeeIDs = state.Resolution.EmployeeIDs
	}
	payload := payroll.SubmitPayload{
		RunID:       r.id,
		CompanyID:   companyID,
		Period:      state.Form.Period,
		Scope:       state.Form.Scope,
		EmployeeIDs: employeeIDs,
		Preview:     *state.Preview,
	}

	result, err := s.submitter.SubmitForApproval(ctx, payload)
	if err != nil {
		upstreamErr := &payroll.UpstreamServiceError{Service: "approval", Err: err}
		slog.Error("payroll submission failed", "run_id", r.id, "company_id", companyID, "error", err)
		return s.apply(ctx, r, SubmitFailed{Err: upstreamErr}, upstreamErr.Error())
	}

	resp, err := s.apply(ctx, r, SubmitSucceeded{Result: result}, "")
	if err != nil {
		return payroll.RunResponse{}, err
	}

	batch := payroll.StoredBatch{
		BatchApprovalResult: result,
		CompanyID:           companyID,
		RunID:               r.id,
		Period:              state.Form.Period,
		EmployeeIDs:         employeeIDs,
		CreatedAt:           s.opts.Now(),
	}
	if err := s.batches.SaveBatch(ctx, batch); err != nil {
		slog.Error("failed to store batch result", "run_id", r.id, "payroll_id", result.PayrollID, "error", err)
	}
	s.publisher.BatchCompleted(ctx, batch)

	return resp, nil
}

// ========== RECOVERY ==========

func (s *PayrollServiceImpl) Retry(ctx context.Context, runID string) (payroll.RunResponse, error) {
	r, companyID, err := s.lookup(ctx, runID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	state, err := s.begin(r, nil)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	defer s.end(r)

	if state.Stage != payroll.StageError || state.Failure == nil {
		return payroll.RunResponse{}, fmt.Errorf("%w: retry is only allowed after a failure", payroll.ErrIllegalTransition)
	}

	if state.Failure.Step == payroll.StepSubmit && state.Preview != nil {
		return s.submit(ctx, r, companyID)
	}
	return s.preview(ctx, r, companyID, state.Form, state.AllowUnresolved)
}

func (s *PayrollServiceImpl) Acknowledge(ctx context.Context, runID string) (payroll.RunResponse, error) {
	return s.simple(ctx, runID, Acknowledged{})
}

func (s *PayrollServiceImpl) Reset(ctx context.Context, runID string) (payroll.RunResponse, error) {
	return s.simple(ctx, runID, ResetRequested{})
}

func (s *PayrollServiceImpl) simple(ctx context.Context, runID string, event Event) (payroll.RunResponse, error) {
	r, _, err := s.lookup(ctx, runID)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	if _, err := s.begin(r, event); err != nil {
		return payroll.RunResponse{}, err
	}
	defer s.end(r)

	return s.apply(ctx, r, event, "")
}

// ========== STANDALONE CHECKS ==========

func (s *PayrollServiceImpl) CheckOverlap(ctx context.Context, req payroll.CheckOverlapRequest) (payroll.OverlapVerdict, error) {
	if err := req.Validate(s.opts.MinYear); err != nil {
		return payroll.OverlapVerdict{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.OverlapVerdict{}, err
	}

	return s.detector.CheckOverlap(ctx, companyID, req.Period, req.EmployeeIDs)
}

func (s *PayrollServiceImpl) ValidateSchedule(ctx context.Context, req payroll.ValidateScheduleRequest) (payroll.ScheduleValidation, error) {
	schedule, err := req.Schedule()
	if err != nil {
		return payroll.ScheduleValidation{}, err
	}
	return schedule.Validate(), nil
}

// ========== BATCHES ==========

func (s *PayrollServiceImpl) GetBatch(ctx context.Context, payrollID string) (payroll.BatchResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	batch, err := s.batches.GetBatchByPayrollID(ctx, payrollID, companyID)
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	return payroll.BatchResponse{
		ApprovalID:        batch.ApprovalID,
		PayrollID:         batch.PayrollID,
		ProcessingSummary: batch.ProcessingSummary,
		RunID:             batch.RunID,
		Period:            batch.Period,
		EmployeeCount:     len(batch.EmployeeIDs),
		CreatedAt:         batch.CreatedAt,
	}, nil
}

func (s *PayrollServiceImpl) ResendPayslips(ctx context.Context, req payroll.ResendPayslipsRequest) (payroll.ResendOutcome, error) {
	if err := req.Validate(); err != nil {
		return payroll.ResendOutcome{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ResendOutcome{}, err
	}

	outcome, err := s.resender.Resend(ctx, companyID, req.PayrollID, req.EmployeeIDs)
	if err != nil && !errors.Is(err, payroll.ErrBatchNotFound) {
		slog.Error("payslip resend failed", "company_id", companyID, "payroll_id", req.PayrollID, "error", err)
	}
	return outcome, err
}

type noopPublisher struct{}

func (noopPublisher) RunTransitioned(context.Context, string, payroll.RunResponse) {}
func (noopPublisher) BatchCompleted(context.Context, payroll.StoredBatch) {}
func (noopPublisher) PayslipsResent(context.Context, string, string, payroll.ResendOutcome) {}
