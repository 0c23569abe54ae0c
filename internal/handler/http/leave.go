package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	ListPendingAsManager(w http.ResponseWriter, r *http.Request)
	ListPendingAsHR(w http.ResponseWriter, r *http.Request)
	ActAsManager(w http.ResponseWriter, r *http.Request)
	ActAsHR(w http.ResponseWriter, r *http.Request)

	GetMyBalance(w http.ResponseWriter, r *http.Request)
	GetBalance(w http.ResponseWriter, r *http.Request)
	SetBalance(w http.ResponseWriter, r *http.Request)
	WorkingDays(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
}

// CreateRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req leave.SubmitLeaveRequest
	if !decodeAndValidate(w, r, "CreateRequest", &req) {
		return
	}

	res, err := l.leaveService.Submit(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request submitted successfully", res)
}

// GetRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		response.BadRequest(w, "Request ID is required", nil)
		return
	}

	res, err := l.leaveService.Get(r.Context(), actor, requestID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	filter := leave.LeaveRequestFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := leave.OverallStatus(s)
		filter.Status = &status
	}

	res, err := l.leaveService.ListMine(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ListPendingAsManager implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPendingAsManager(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := l.leaveService.ListPendingAsManager(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ListPendingAsHR implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPendingAsHR(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := l.leaveService.ListPendingAsHR(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ActAsManager implements LeaveHandler.
func (l *LeaveHandlerImpl) ActAsManager(w http.ResponseWriter, r *http.Request) {
	l.act(w, r, l.leaveService.ActAsManager)
}

// ActAsHR implements LeaveHandler.
func (l *LeaveHandlerImpl) ActAsHR(w http.ResponseWriter, r *http.Request) {
	l.act(w, r, l.leaveService.ActAsHR)
}

type leaveAction func(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (leave.LeaveRequestResponse, error)

func (l *LeaveHandlerImpl) act(w http.ResponseWriter, r *http.Request, fn leaveAction) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req approval.ActRequest
	if !decodeAndValidate(w, r, "ActOnLeave", &req) {
		return
	}

	res, err := fn(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request "+actedMessage(req.Parsed), res)
}

// GetMyBalance implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := l.leaveService.GetBalance(r.Context(), actor, actor.ID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// GetBalance implements LeaveHandler.
func (l *LeaveHandlerImpl) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := l.leaveService.GetBalance(r.Context(), actor, chi.URLParam(r, "employee_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// SetBalance implements LeaveHandler.
func (l *LeaveHandlerImpl) SetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req leave.SetBalanceRequest
	if !decodeAndValidate(w, r, "SetBalance", &req) {
		return
	}

	res, err := l.leaveService.SetBalance(r.Context(), actor, chi.URLParam(r, "employee_id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave balance updated successfully", res)
}

// WorkingDays implements LeaveHandler.
func (l *LeaveHandlerImpl) WorkingDays(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req leave.WorkingDaysRequest
	if !decodeAndValidate(w, r, "WorkingDays", &req) {
		return
	}

	res, err := l.leaveService.WorkingDays(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
	}
}
