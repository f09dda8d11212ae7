package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/allowance"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AllowanceHandler interface {
	Assign(w http.ResponseWriter, r *http.Request)
	ListForEmployee(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Remove(w http.ResponseWriter, r *http.Request)
	DueForEmployee(w http.ResponseWriter, r *http.Request)
}

type allowanceHandlerImpl struct {
	allowanceService allowance.AllowanceService
}

func NewAllowanceHandler(allowanceService allowance.AllowanceService) AllowanceHandler {
	return &allowanceHandlerImpl{allowanceService: allowanceService}
}

func (h *allowanceHandlerImpl) Assign(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	var req allowance.AssignAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = employeeID

	result, err := h.allowanceService.Assign(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Allowance assigned to employee", result)
}

func (h *allowanceHandlerImpl) ListForEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	result, err := h.allowanceService.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: int64(len(result))})
}

func (h *allowanceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Allowance ID is required", nil)
		return
	}

	var req allowance.UpdateAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.allowanceService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *allowanceHandlerImpl) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Allowance ID is required", nil)
		return
	}

	if err := h.allowanceService.Remove(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allowance removed successfully", nil)
}

func (h *allowanceHandlerImpl) DueForEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	query := r.URL.Query()
	month, err := strconv.Atoi(query.Get("month"))
	if err != nil {
		response.BadRequest(w, "Invalid month", nil)
		return
	}
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		response.BadRequest(w, "Invalid year", nil)
		return
	}

	result, err := h.allowanceService.DueForEmployee(r.Context(), allowance.DueAllowancesRequest{
		EmployeeID: employeeID,
		Month:      month,
		Year:       year,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
