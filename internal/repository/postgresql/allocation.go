package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const allocationColumns = `
	a.id, a.employee_id, e.employee_code, e.name, a.project_id, p.name, p.account,
	a.month, a.allocated_days, a.consumed_days, a.created_at, a.updated_at`

const allocationFrom = `
	FROM allocations a
	INNER JOIN employees e ON e.id = a.employee_id
	INNER JOIN projects p ON p.id = a.project_id`

type allocationRepositoryImpl struct {
	db *database.DB
}

func NewAllocationRepository(db *database.DB) allocation.AllocationRepository {
	return &allocationRepositoryImpl{db: db}
}

func scanAllocation(row pgx.Row) (allocation.Allocation, error) {
	var a allocation.Allocation
	err := row.Scan(
		&a.ID, &a.EmployeeID, &a.EmployeeCode, &a.EmployeeName, &a.ProjectID, &a.ProjectName, &a.Account,
		&a.Month, &a.AllocatedDays, &a.ConsumedDays, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *allocationRepositoryImpl) list(ctx context.Context, where, suffix string, args ...interface{}) ([]allocation.Allocation, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.month, e.name, p.name %s`, allocationColumns, allocationFrom, where, suffix)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []allocation.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Upsert implements allocation.AllocationRepository.
func (r *allocationRepositoryImpl) Upsert(ctx context.Context, a allocation.Allocation) (allocation.Allocation, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO allocations (id, employee_id, project_id, month, allocated_days, consumed_days, created_at, updated_at)
		VALUES (uuidv7(), $1, $2, $3, $4, 0, NOW(), NOW())
		ON CONFLICT (employee_id, project_id, month) DO UPDATE
		SET allocated_days = EXCLUDED.allocated_days, updated_at = NOW()
		RETURNING id, consumed_days, created_at, updated_at
	`, a.EmployeeID, a.ProjectID, a.Month, a.AllocatedDays).Scan(&a.ID, &a.ConsumedDays, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return allocation.Allocation{}, fmt.Errorf("upsert allocation: %w", err)
	}
	return a, nil
}

// LockMonth implements allocation.AllocationRepository.
func (r *allocationRepositoryImpl) LockMonth(ctx context.Context, employeeID, month string) (allocation.MonthLedger, error) {
	rows, err := r.list(ctx, "a.employee_id = $1 AND a.month = $2", "FOR UPDATE OF a", employeeID, month)
	if err != nil {
		return allocation.MonthLedger{}, fmt.Errorf("lock allocation month: %w", err)
	}
	return allocation.MonthLedger{EmployeeID: employeeID, Month: month, Rows: rows}, nil
}

// ListByEmployeeMonth implements allocation.AllocationRepository.
func (r *allocationRepositoryImpl) ListByEmployeeMonth(ctx context.Context, employeeID, month string) ([]allocation.Allocation, error) {
	return r.list(ctx, "a.employee_id = $1 AND a.month = $2", "", employeeID, month)
}

// ListByProject implements allocation.AllocationRepository.
func (r *allocationRepositoryImpl) ListByProject(ctx context.Context, projectID string, month *string) ([]allocation.Allocation, error) {
	return r.list(ctx, "a.project_id = $1 AND ($2::text IS NULL OR a.month = $2)", "", projectID, month)
}

// ListByMonth implements allocation.AllocationRepository.
func (r *allocationRepositoryImpl) ListByMonth(ctx context.Context, month string) ([]allocation.Allocation, error) {
	return r.list(ctx, "a.month = $1", "", month)
}

// AddConsumed implements allocation.AllocationRepository. delta may be negative
// when a day is re-posted with fewer days; consumption never drops below zero.
func (r *allocationRepositoryImpl) AddConsumed(ctx context.Context, id string, delta decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE allocations
		SET consumed_days = GREATEST(consumed_days + $2, 0), updated_at = NOW()
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return allocation.ErrAllocationNotFound
	}
	return nil
}

// GrantDefaults implements allocation.AllocationRepository. Existing rows are
// reset to the default allocation; consumed days are untouched.
func (r *allocationRepositoryImpl) GrantDefaults(ctx context.Context, month, projectID string, days decimal.Decimal) (int64, error) {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		INSERT INTO allocations (id, employee_id, project_id, month, allocated_days, consumed_days, created_at, updated_at)
		SELECT uuidv7(), e.id, $2, $1, $3, 0, NOW(), NOW()
		FROM employees e
		ON CONFLICT (employee_id, project_id, month) DO UPDATE
		SET allocated_days = EXCLUDED.allocated_days, updated_at = NOW()
		WHERE allocations.allocated_days <> EXCLUDED.allocated_days
	`, month, projectID, days)
	if err != nil {
		return 0, fmt.Errorf("grant default allocations: %w", err)
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO project_employees (project_id, employee_id, assigned_at)
		SELECT $1, e.id, NOW() FROM employees e
		ON CONFLICT DO NOTHING
	`, projectID); err != nil {
		return 0, fmt.Errorf("grant default project assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}
