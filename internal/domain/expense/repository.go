package expense

import (
	"context"
	"time"
)

type ExpenseRepository interface {
	// NextCode issues the next request code for day, e.g. EXP-20251125-0001.
	NextCode(ctx context.Context, day time.Time) (string, error)
	Create(ctx context.Context, req ExpenseRequest) (ExpenseRequest, error)
	GetByID(ctx context.Context, id string) (ExpenseRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (ExpenseRequest, error)
	ListByEmployee(ctx context.Context, employeeID string, filter ExpenseFilter) ([]ExpenseRequest, int64, error)
	ListPendingForManager(ctx context.Context, managerID string) ([]ExpenseRequest, error)
	ListPendingForHR(ctx context.Context, hrID string, allEmployees bool) ([]ExpenseRequest, error)
	ListByStatus(ctx context.Context, status Status) ([]ExpenseRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	StatisticsByEmployee(ctx context.Context, employeeID string) ([]StatusStat, error)

	AddAttachment(ctx context.Context, a Attachment) (Attachment, error)
	ListAttachments(ctx context.Context, requestID string) ([]Attachment, error)
	GetAttachment(ctx context.Context, requestID, attachmentID string) (Attachment, error)

	AppendHistory(ctx context.Context, h History) (History, error)
	ListHistory(ctx context.Context, requestID string) ([]History, error)
}
