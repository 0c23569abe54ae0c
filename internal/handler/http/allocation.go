package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const maxImportFile = 5 << 20

type AllocationHandler interface {
	Import(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)
	Save(w http.ResponseWriter, r *http.Request)
	Check(w http.ResponseWriter, r *http.Request)
	GrantDefaults(w http.ResponseWriter, r *http.Request)

	ListProjects(w http.ResponseWriter, r *http.Request)
	CreateProject(w http.ResponseWriter, r *http.Request)
	MyProjects(w http.ResponseWriter, r *http.Request)
	EmployeeProjects(w http.ResponseWriter, r *http.Request)
	ProjectAllocations(w http.ResponseWriter, r *http.Request)
	ReplaceProjectEmployees(w http.ResponseWriter, r *http.Request)
}

type allocationHandlerImpl struct {
	allocationService allocation.AllocationService
	projectService    project.ProjectService
}

func NewAllocationHandler(allocationService allocation.AllocationService, projectService project.ProjectService) AllocationHandler {
	return &allocationHandlerImpl{
		allocationService: allocationService,
		projectService:    projectService,
	}
}

// Import takes the CSV as the "file" part of a multipart form.
func (h *allocationHandlerImpl) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImportFile); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Field 'file' is required", nil)
		return
	}
	defer file.Close()

	res, err := h.allocationService.Import(r.Context(), actor, file)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allocation import processed", res)
}

func (h *allocationHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	res, err := h.allocationService.Summary(r.Context(), actor, subjectID(r, actor.ID), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) Save(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req allocation.SaveRequest
	if !decodeAndValidate(w, r, "SaveAllocation", &req) {
		return
	}

	res, err := h.allocationService.Save(r.Context(), actor, chi.URLParam(r, "employee_id"), chi.URLParam(r, "month"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Allocations saved", res)
}

func (h *allocationHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req allocation.CheckRequest
	if !decodeAndValidate(w, r, "CheckAllocation", &req) {
		return
	}

	res, err := h.allocationService.Check(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// GrantDefaults runs the monthly In-House grant on demand; ?month defaults
// to the current month.
func (h *allocationHandlerImpl) GrantDefaults(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	res, err := h.allocationService.GrantDefaults(r.Context(), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var status *project.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := project.Status(s)
		status = &st
	}

	res, err := h.projectService.List(r.Context(), actor, status)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req project.CreateProjectRequest
	if !decodeAndValidate(w, r, "CreateProject", &req) {
		return
	}

	res, err := h.projectService.Create(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Project created successfully", res)
}

func (h *allocationHandlerImpl) MyProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.projectService.Mine(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) EmployeeProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.projectService.ForEmployee(r.Context(), actor, chi.URLParam(r, "employee_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) ProjectAllocations(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.allocationService.ListByProject(r.Context(), actor, chi.URLParam(r, "id"), optionalQuery(r, "month"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *allocationHandlerImpl) ReplaceProjectEmployees(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req project.AssignEmployeesRequest
	if !decodeAndValidate(w, r, "ReplaceProjectEmployees", &req) {
		return
	}

	ids, err := h.projectService.ReplaceEmployees(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Project members updated", map[string]interface{}{"employee_ids": ids})
}
