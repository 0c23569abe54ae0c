package http

import (
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type EmployeeHandler interface {
	CreateOnboarding(w http.ResponseWriter, r *http.Request)
	ListOnboarding(w http.ResponseWriter, r *http.Request)
	ApproveOnboarding(w http.ResponseWriter, r *http.Request)
	RejectOnboarding(w http.ResponseWriter, r *http.Request)

	ListEmployees(w http.ResponseWriter, r *http.Request)
	GetEmployee(w http.ResponseWriter, r *http.Request)

	GetAssignments(w http.ResponseWriter, r *http.Request)
	ReplaceAssignments(w http.ResponseWriter, r *http.Request)
	Reportees(w http.ResponseWriter, r *http.Request)

	ListRoleOverrides(w http.ResponseWriter, r *http.Request)
	UpsertRoleOverride(w http.ResponseWriter, r *http.Request)
	DeleteRoleOverride(w http.ResponseWriter, r *http.Request)
}

type employeeHandlerImpl struct {
	employeeService   employee.Service
	assignmentService assignment.Service
}

func NewEmployeeHandler(employeeService employee.Service, assignmentService assignment.Service) EmployeeHandler {
	return &employeeHandlerImpl{
		employeeService:   employeeService,
		assignmentService: assignmentService,
	}
}

// CreateOnboarding implements EmployeeHandler.
func (h *employeeHandlerImpl) CreateOnboarding(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req employee.CreateOnboardingRequest
	if !decodeAndValidate(w, r, "CreateOnboarding", &req) {
		return
	}

	res, err := h.employeeService.CreateOnboarding(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Onboarding record created successfully", res)
}

// ListOnboarding implements EmployeeHandler.
func (h *employeeHandlerImpl) ListOnboarding(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var status *employee.OnboardingStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := employee.OnboardingStatus(s)
		status = &st
	}

	res, err := h.employeeService.ListOnboarding(r.Context(), actor, status)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ApproveOnboarding implements EmployeeHandler.
func (h *employeeHandlerImpl) ApproveOnboarding(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.employeeService.ApproveOnboarding(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Employee onboarded successfully", res)
}

// RejectOnboarding implements EmployeeHandler.
func (h *employeeHandlerImpl) RejectOnboarding(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := h.employeeService.RejectOnboarding(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Onboarding rejected", nil)
}

// ListEmployees implements EmployeeHandler.
func (h *employeeHandlerImpl) ListEmployees(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	filter := employee.EmployeeFilter{
		Search: optionalQuery(r, "search"),
		Page:   getIntQueryParam(r, "page", 1),
		Limit:  getIntQueryParam(r, "limit", 20),
	}
	if s := r.URL.Query().Get("role"); s != "" {
		role, ok := employee.ParseRole(s)
		if !ok {
			response.BadRequest(w, "Invalid role", map[string]string{"role": "unknown role"})
			return
		}
		filter.Role = &role
	}

	res, err := h.employeeService.ListEmployees(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// GetEmployee implements EmployeeHandler.
func (h *employeeHandlerImpl) GetEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.employeeService.GetEmployee(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// GetAssignments implements EmployeeHandler.
func (h *employeeHandlerImpl) GetAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.assignmentService.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ReplaceAssignments implements EmployeeHandler.
func (h *employeeHandlerImpl) ReplaceAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req employee.ReplaceAssignmentsRequest
	if !decodeAndValidate(w, r, "ReplaceAssignments", &req) {
		return
	}

	res, err := h.assignmentService.Replace(r.Context(), actor, chi.URLParam(r, "id"), req.ManagerIDs, req.HRIDs)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Assignments updated successfully", res)
}

// Reportees implements EmployeeHandler.
func (h *employeeHandlerImpl) Reportees(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.assignmentService.Reportees(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ListRoleOverrides implements EmployeeHandler.
func (h *employeeHandlerImpl) ListRoleOverrides(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.employeeService.ListRoleOverrides(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// UpsertRoleOverride implements EmployeeHandler.
func (h *employeeHandlerImpl) UpsertRoleOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req employee.UpsertRoleOverrideRequest
	if !decodeAndValidate(w, r, "UpsertRoleOverride", &req) {
		return
	}

	res, err := h.employeeService.UpsertRoleOverride(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Role override saved", res)
}

// DeleteRoleOverride implements EmployeeHandler.
func (h *employeeHandlerImpl) DeleteRoleOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := h.employeeService.DeleteRoleOverride(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Role override deleted", nil)
}
