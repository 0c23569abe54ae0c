package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
)

type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	ListByEmployee(ctx context.Context, employeeID string, filter LeaveRequestFilter) ([]LeaveRequest, int64, error)
	ListPendingForManager(ctx context.Context, managerID string) ([]LeaveRequest, error)
	// ListPendingForHR lists manager-approved requests awaiting HR. allEmployees
	// skips the HR assignment filter (Super-HR).
	ListPendingForHR(ctx context.Context, hrID string, allEmployees bool) ([]LeaveRequest, error)
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	RecordManagerDecision(ctx context.Context, id string, status approval.SlotStatus, overall OverallStatus, actorID string, reason *string) error
	RecordHRDecision(ctx context.Context, id string, status approval.SlotStatus, overall OverallStatus, actorID string, reason *string) error
}

type BalanceRepository interface {
	// Init creates the zeroed balance row; it is a no-op when one exists.
	Init(ctx context.Context, employeeID string) error
	Get(ctx context.Context, employeeID string) (Balance, error)
	// Debit reduces one counter, flooring at zero.
	Debit(ctx context.Context, employeeID string, category Category, days int) error
	Set(ctx context.Context, balance Balance) (Balance, error)
}
