package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/expense"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// maxExpenseForm bounds the in-memory part of a submission; larger receipts
// spill to temporary files.
const maxExpenseForm = 32 << 20

type ExpenseHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	ListPending(w http.ResponseWriter, r *http.Request)
	Act(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Archive(w http.ResponseWriter, r *http.Request)
	Statistics(w http.ResponseWriter, r *http.Request)
	DownloadAttachment(w http.ResponseWriter, r *http.Request)
}

type expenseHandlerImpl struct {
	expenseService expense.ExpenseService
}

func NewExpenseHandler(expenseService expense.ExpenseService) ExpenseHandler {
	return &expenseHandlerImpl{expenseService: expenseService}
}

// Submit takes a multipart form: a "data" JSON field plus one or more
// "receipts" files.
func (h *expenseHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxExpenseForm); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	dataJSON := r.FormValue("data")
	if dataJSON == "" {
		response.BadRequest(w, "Field 'data' is required", nil)
		return
	}

	var req expense.SubmitExpenseRequest
	if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
		slog.Error("Failed to unmarshal JSON data", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	files := r.MultipartForm.File["receipts"]
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			slog.Error("Failed to open receipt", "file", fh.Filename, "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return
		}
		defer f.Close()
		req.Receipts = append(req.Receipts, receiptOf(fh, f))
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	res, err := h.expenseService.Submit(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Expense request submitted successfully", res)
}

func receiptOf(fh *multipart.FileHeader, f multipart.File) expense.Receipt {
	return expense.Receipt{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		File:        f,
	}
}

func (h *expenseHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.expenseService.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *expenseHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	filter := expense.ExpenseFilter{
		IncludeArchived: getBoolQueryParam(r, "include_archived", false),
		Page:            getIntQueryParam(r, "page", 1),
		Limit:           getIntQueryParam(r, "limit", 20),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := expense.Status(s)
		filter.Status = &status
	}

	res, err := h.expenseService.ListMine(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// ListPending lists requests waiting on the {stage} in the URL.
func (h *expenseHandlerImpl) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	stage, ok := expense.ParseStage(chi.URLParam(r, "stage"))
	if !ok {
		response.HandleError(w, expense.ErrUnknownStage)
		return
	}

	res, err := h.expenseService.ListPending(r.Context(), actor, stage)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

func (h *expenseHandlerImpl) Act(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	stage, ok := expense.ParseStage(chi.URLParam(r, "stage"))
	if !ok {
		response.HandleError(w, expense.ErrUnknownStage)
		return
	}

	var req approval.ActRequest
	if !decodeAndValidate(w, r, "ActOnExpense", &req) {
		return
	}

	res, err := h.expenseService.Act(r.Context(), actor, chi.URLParam(r, "id"), stage, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Expense request "+actedMessage(req.Parsed), res)
}

func (h *expenseHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := h.expenseService.Cancel(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Expense request cancelled", nil)
}

func (h *expenseHandlerImpl) Archive(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	if err := h.expenseService.Archive(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Expense request archived", nil)
}

func (h *expenseHandlerImpl) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	res, err := h.expenseService.Statistics(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, res)
}

// DownloadAttachment streams a stored receipt.
func (h *expenseHandlerImpl) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentEmployee(w, r)
	if !ok {
		return
	}

	att, content, err := h.expenseService.OpenAttachment(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "attachment_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer content.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", att.FileName))
	if _, err := io.Copy(w, content); err != nil {
		slog.Error("Failed to stream attachment", "attachment_id", att.ID, "error", err)
	}
}
