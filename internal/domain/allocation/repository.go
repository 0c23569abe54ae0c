package allocation

import (
	"context"

	"github.com/shopspring/decimal"
)

type AllocationRepository interface {
	// Upsert sets allocated_days for (employee, project, month), keeping consumed_days.
	Upsert(ctx context.Context, a Allocation) (Allocation, error)
	// LockMonth reads the employee's rows for a month with FOR UPDATE.
	LockMonth(ctx context.Context, employeeID, month string) (MonthLedger, error)
	ListByEmployeeMonth(ctx context.Context, employeeID, month string) ([]Allocation, error)
	ListByProject(ctx context.Context, projectID string, month *string) ([]Allocation, error)
	ListByMonth(ctx context.Context, month string) ([]Allocation, error)
	AddConsumed(ctx context.Context, id string, delta decimal.Decimal) error
	// GrantDefaults ensures every employee, inactive ones included, has an allocation of days on
	// the project for month, plus a project assignment.
	GrantDefaults(ctx context.Context, month, projectID string, days decimal.Decimal) (int64, error)
}
