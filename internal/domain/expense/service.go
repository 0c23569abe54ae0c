package expense

import (
	"context"
	"io"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type ExpenseService interface {
	Submit(ctx context.Context, actor employee.Employee, req SubmitExpenseRequest) (ExpenseResponse, error)
	Get(ctx context.Context, actor employee.Employee, id string) (ExpenseResponse, error)
	ListMine(ctx context.Context, actor employee.Employee, filter ExpenseFilter) (ListExpenseResponse, error)
	ListPending(ctx context.Context, actor employee.Employee, stage Stage) ([]ExpenseResponse, error)
	Act(ctx context.Context, actor employee.Employee, id string, stage Stage, req approval.ActRequest) (ExpenseResponse, error)
	Cancel(ctx context.Context, actor employee.Employee, id string) error
	Archive(ctx context.Context, actor employee.Employee, id string) error
	Statistics(ctx context.Context, actor employee.Employee) (StatisticsResponse, error)
	OpenAttachment(ctx context.Context, actor employee.Employee, requestID, attachmentID string) (Attachment, io.ReadCloser, error)
}
