package http

import (
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
)

type AttendanceHandler interface {
	Post(w http.ResponseWriter, r *http.Request)
	PostBulk(w http.ResponseWriter, r *http.Request)
	Weekly(w http.ResponseWriter, r *http.Request)
	Daily(w http.ResponseWriter, r *http.Request)
	ProjectDaily(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// Post implements AttendanceHandler.
func (h *attendanceHandlerImpl) Post(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req attendance.PostRequest
	if !decodeAndValidate(w, r, "PostAttendance", &req) {
		return
	}

	res, err := h.attendanceService.Post(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance saved", res)
}

// PostBulk implements AttendanceHandler. Per-day failures are reported in
// the body, so the status is 200 whenever the batch itself was valid.
func (h *attendanceHandlerImpl) PostBulk(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req attendance.BulkPostRequest
	if !decodeAndValidate(w, r, "PostAttendanceBulk", &req) {
		return
	}

	res, err := h.attendanceService.PostBulk(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// Weekly implements AttendanceHandler.
func (h *attendanceHandlerImpl) Weekly(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("week_start")
	if weekStart == "" {
		response.BadRequest(w, "week_start is required", nil)
		return
	}

	res, err := h.attendanceService.Weekly(r.Context(), actor, subjectID(r, actor.ID), weekStart)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// Daily implements AttendanceHandler.
func (h *attendanceHandlerImpl) Daily(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date is required", nil)
		return
	}

	res, err := h.attendanceService.Daily(r.Context(), actor, subjectID(r, actor.ID), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ProjectDaily implements AttendanceHandler.
func (h *attendanceHandlerImpl) ProjectDaily(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		response.BadRequest(w, "month is required", nil)
		return
	}

	res, err := h.attendanceService.ProjectDaily(r.Context(), actor, subjectID(r, actor.ID), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}
