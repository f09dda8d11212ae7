package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	StartRun(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	UpdateDraft(w http.ResponseWriter, r *http.Request)
	RequestPreview(w http.ResponseWriter, r *http.Request)
	SubmitForApproval(w http.ResponseWriter, r *http.Request)
	Retry(w http.ResponseWriter, r *http.Request)
	Acknowledge(w http.ResponseWriter, r *http.Request)
	Reset(w http.ResponseWriter, r *http.Request)

	// Checks
	CheckOverlap(w http.ResponseWriter, r *http.Request)
	ValidateSchedule(w http.ResponseWriter, r *http.Request)

	// Batches
	GetBatch(w http.ResponseWriter, r *http.Request)
	ResendPayslips(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollBatchService
}

func NewPayrollHandler(payrollService payroll.PayrollBatchService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) StartRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.StartRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run started", result)
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	var req payroll.UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RunID = id

	result, err := h.payrollService.UpdateDraft(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// RequestPreview accepts an empty body.
func (h *payrollHandlerImpl) RequestPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	var req payroll.RequestPreviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.RunID = id

	result, err := h.payrollService.RequestPreview(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.payrollService.SubmitForApproval)
}

func (h *payrollHandlerImpl) Retry(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.payrollService.Retry)
}

func (h *payrollHandlerImpl) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.payrollService.Acknowledge)
}

func (h *payrollHandlerImpl) Reset(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.payrollService.Reset)
}

func (h *payrollHandlerImpl) runAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, runID string) (payroll.RunResponse, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Run ID is required", nil)
		return
	}

	result, err := action(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CHECKS ==========

func (h *payrollHandlerImpl) CheckOverlap(w http.ResponseWriter, r *http.Request) {
	var req payroll.CheckOverlapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CheckOverlap(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ValidateSchedule(w http.ResponseWriter, r *http.Request) {
	var req payroll.ValidateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ValidateSchedule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== BATCHES ==========

func (h *payrollHandlerImpl) GetBatch(w http.ResponseWriter, r *http.Request) {
	payrollID := chi.URLParam(r, "payrollId")
	if payrollID == "" {
		response.BadRequest(w, "Payroll ID is required", nil)
		return
	}

	result, err := h.payrollService.GetBatch(r.Context(), payrollID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ResendPayslips accepts an empty body, meaning every employee of the batch.
// A partial failure is still a 200 with the warning in the payload.
func (h *payrollHandlerImpl) ResendPayslips(w http.ResponseWriter, r *http.Request) {
	payrollID := chi.URLParam(r, "payrollId")
	if payrollID == "" {
		response.BadRequest(w, "Payroll ID is required", nil)
		return
	}

	var req payroll.ResendPayslipsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.PayrollID = payrollID

	outcome, err := h.payrollService.ResendPayslips(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := payroll.ResendResponse{ResendOutcome: outcome}
	if outcome.Warning != nil {
		msg := outcome.Warning.Error()
		result.WarningMessage = &msg
		response.SuccessWithMessage(w, msg, result)
		return
	}

	response.Success(w, result)
}
