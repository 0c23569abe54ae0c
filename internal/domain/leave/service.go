package leave

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type LeaveService interface {
	Submit(ctx context.Context, actor employee.Employee, req SubmitLeaveRequest) (LeaveRequestResponse, error)
	Get(ctx context.Context, actor employee.Employee, id string) (LeaveRequestResponse, error)
	ListMine(ctx context.Context, actor employee.Employee, filter LeaveRequestFilter) (ListLeaveRequestResponse, error)
	ListPendingAsManager(ctx context.Context, actor employee.Employee) ([]LeaveRequestResponse, error)
	ListPendingAsHR(ctx context.Context, actor employee.Employee) ([]LeaveRequestResponse, error)
	ActAsManager(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (LeaveRequestResponse, error)
	ActAsHR(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (LeaveRequestResponse, error)

	GetBalance(ctx context.Context, actor employee.Employee, employeeID string) (BalanceResponse, error)
	SetBalance(ctx context.Context, actor employee.Employee, employeeID string, req SetBalanceRequest) (BalanceResponse, error)
	WorkingDays(ctx context.Context, actor employee.Employee, req WorkingDaysRequest) (WorkingDaysResponse, error)
}
