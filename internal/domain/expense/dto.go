package expense

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const MaxReceiptSize = 10 << 20

var allowedReceiptExts = []string{".pdf", ".jpg", ".jpeg", ".png"}

// Receipt is an uploaded file accompanying a submission.
type Receipt struct {
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

type SubmitExpenseRequest struct {
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	ExpenseDate   string `json:"expense_date"`
	TaxApplicable bool   `json:"tax_applicable"`
	TaxPercentage string `json:"tax_percentage"`
	Receipts      []Receipt

	ParsedAmount decimal.Decimal `json:"-"`
	ParsedTax    decimal.Decimal `json:"-"`
	ParsedDate   time.Time       `json:"-"`
}

func (r *SubmitExpenseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Category) {
		errs = append(errs, validator.ValidationError{Field: "category", Message: "category is required"})
	} else if len(r.Category) > 100 {
		errs = append(errs, validator.ValidationError{Field: "category", Message: "category must not exceed 100 characters"})
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil || !amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "amount must be a positive number"})
	}
	r.ParsedAmount = amount

	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if !validator.IsValidCurrency(r.Currency) {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "currency must be a 3-letter ISO code"})
	}

	date, ok := validator.IsValidDate(r.ExpenseDate)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "expense_date", Message: "expense_date must be in YYYY-MM-DD format"})
	}
	r.ParsedDate = date

	r.ParsedTax = decimal.Zero
	if r.TaxApplicable {
		tax, err := decimal.NewFromString(strings.TrimSpace(r.TaxPercentage))
		if err != nil || tax.IsNegative() || tax.GreaterThan(decimal.NewFromInt(100)) {
			errs = append(errs, validator.ValidationError{Field: "tax_percentage", Message: "tax_percentage must be between 0 and 100"})
		}
		r.ParsedTax = tax
	}

	if len(r.Description) > 2000 {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "description must not exceed 2000 characters"})
	}

	for _, rc := range r.Receipts {
		ext := strings.ToLower(filepath.Ext(rc.FileName))
		if !validator.IsInSlice(ext, allowedReceiptExts) {
			errs = append(errs, validator.ValidationError{Field: "receipts", Message: "receipts must be pdf, jpg, jpeg or png files"})
			break
		}
		if rc.Size > MaxReceiptSize {
			errs = append(errs, validator.ValidationError{Field: "receipts", Message: "each receipt must be 10 MB or smaller"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ExpenseFilter struct {
	Status          *Status
	IncludeArchived bool
	Page            int
	Limit           int
}

func (f *ExpenseFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type AttachmentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type HistoryResponse struct {
	ActorID    string    `json:"actor_id"`
	ActorName  *string   `json:"actor_name,omitempty"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	Reason     *string   `json:"reason,omitempty"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ExpenseResponse struct {
	ID            string               `json:"id"`
	Code          string               `json:"request_code"`
	EmployeeID    string               `json:"employee_id"`
	EmployeeName  string               `json:"employee_name,omitempty"`
	Category      string               `json:"category"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	Description   *string              `json:"description,omitempty"`
	ExpenseDate   string               `json:"expense_date"`
	TaxApplicable bool                 `json:"tax_applicable"`
	TaxPercentage decimal.Decimal      `json:"tax_percentage"`
	FinalAmount   decimal.Decimal      `json:"final_amount"`
	Status        string               `json:"status"`
	Archived      bool                 `json:"archived"`
	Attachments   []AttachmentResponse `json:"attachments,omitempty"`
	History       []HistoryResponse    `json:"history,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func NewExpenseResponse(e ExpenseRequest, attachments []Attachment, history []History) ExpenseResponse {
	resp := ExpenseResponse{
		ID:            e.ID,
		Code:          e.Code,
		EmployeeID:    e.EmployeeID,
		Category:      e.Category,
		Amount:        e.Amount,
		Currency:      e.Currency,
		Description:   e.Description,
		ExpenseDate:   e.ExpenseDate.Format(calendar.DateLayout),
		TaxApplicable: e.TaxApplicable,
		TaxPercentage: e.TaxPercentage,
		FinalAmount:   e.FinalAmount,
		Status:        string(e.Status),
		Archived:      e.DeletedAt != nil,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.EmployeeName != nil {
		resp.EmployeeName = *e.EmployeeName
	}
	for _, a := range attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Size:        a.Size,
			UploadedAt:  a.UploadedAt,
		})
	}
	for _, h := range history {
		resp.History = append(resp.History, HistoryResponse{
			ActorID:    h.ActorID,
			ActorName:  h.ActorName,
			ActorRole:  string(h.ActorRole),
			Action:     string(h.Action),
			Reason:     h.Reason,
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			CreatedAt:  h.CreatedAt,
		})
	}
	return resp
}

func NewExpenseResponses(list []ExpenseRequest) []ExpenseResponse {
	out := make([]ExpenseResponse, 0, len(list))
	for _, e := range list {
		out = append(out, NewExpenseResponse(e, nil, nil))
	}
	return out
}

type ListExpenseResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Expenses   []ExpenseResponse `json:"expenses"`
}

type StatusStatResponse struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type StatisticsResponse struct {
	Mine    []StatusStatResponse `json:"mine"`
	Pending map[string]int       `json:"pending_for_me"`
}
