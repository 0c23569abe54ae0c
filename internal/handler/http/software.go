package http

import (
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/software"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SoftwareHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	ListPendingAsManager(w http.ResponseWriter, r *http.Request)
	ListByStatus(w http.ResponseWriter, r *http.Request)
	ActAsManager(w http.ResponseWriter, r *http.Request)
	DispatchQuestionnaire(w http.ResponseWriter, r *http.Request)
	SubmitAnswers(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request)

	ListQuestions(w http.ResponseWriter, r *http.Request)
	CreateQuestion(w http.ResponseWriter, r *http.Request)
	UpdateQuestion(w http.ResponseWriter, r *http.Request)
	DeleteQuestion(w http.ResponseWriter, r *http.Request)
}

type softwareHandlerImpl struct {
	softwareService software.SoftwareService
}

func NewSoftwareHandler(softwareService software.SoftwareService) SoftwareHandler {
	return &softwareHandlerImpl{softwareService: softwareService}
}

func (h *softwareHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req software.SubmitSoftwareRequest
	if !decodeAndValidate(w, r, "SubmitSoftware", &req) {
		return
	}

	res, err := h.softwareService.Submit(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Software request submitted successfully", res)
}

func (h *softwareHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *softwareHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.ListMine(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *softwareHandlerImpl) ListPendingAsManager(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.ListPendingAsManager(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ListByStatus is the IT admin queue; without ?status it lists everything.
func (h *softwareHandlerImpl) ListByStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var status *software.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := software.ParseStatus(s)
		if !ok {
			response.BadRequest(w, "Invalid status", map[string]string{"status": "status must be Pending, Approved, Rejected or Completed"})
			return
		}
		status = &st
	}

	res, err := h.softwareService.ListByStatus(r.Context(), actor, status)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *softwareHandlerImpl) ActAsManager(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req approval.ActRequest
	if !decodeAndValidate(w, r, "ActOnSoftware", &req) {
		return
	}

	res, err := h.softwareService.ActAsManager(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Software request "+actedMessage(req.Parsed), res)
}

func (h *softwareHandlerImpl) DispatchQuestionnaire(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.DispatchQuestionnaire(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Compliance questionnaire sent", res)
}

func (h *softwareHandlerImpl) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req software.SubmitAnswersRequest
	if !decodeAndValidate(w, r, "SubmitAnswers", &req) {
		return
	}

	res, err := h.softwareService.SubmitAnswers(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Compliance answers recorded", res)
}

func (h *softwareHandlerImpl) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.Complete(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Software request completed", res)
}

func (h *softwareHandlerImpl) ListQuestions(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.softwareService.ListQuestions(r.Context(), actor, getBoolQueryParam(r, "include_inactive", false))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *softwareHandlerImpl) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req software.QuestionRequest
	if !decodeAndValidate(w, r, "CreateQuestion", &req) {
		return
	}

	res, err := h.softwareService.CreateQuestion(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Compliance question created", res)
}

func (h *softwareHandlerImpl) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	var req software.QuestionRequest
	if !decodeAndValidate(w, r, "UpdateQuestion", &req) {
		return
	}

	res, err := h.softwareService.UpdateQuestion(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Compliance question updated", res)
}

func (h *softwareHandlerImpl) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := h.softwareService.DeleteQuestion(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Compliance question deleted", nil)
}
