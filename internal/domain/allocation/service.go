package allocation

import (
	"context"
	"io"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type AllocationService interface {
	Import(ctx context.Context, actor employee.Employee, file io.Reader) (ImportResult, error)
	Summary(ctx context.Context, actor employee.Employee, employeeID, month string) (SummaryResponse, error)
	ListByProject(ctx context.Context, actor employee.Employee, projectID string, month *string) ([]AllocationResponse, error)
	Save(ctx context.Context, actor employee.Employee, employeeID, month string, req SaveRequest) (SummaryResponse, error)
	Check(ctx context.Context, actor employee.Employee, req CheckRequest) (CheckResult, error)
	// GrantDefaults is idempotent; it also runs from the daily job.
	GrantDefaults(ctx context.Context, month string) (GrantResponse, error)
}
