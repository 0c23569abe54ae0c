package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const leaveRequestColumns = `
	lr.id, lr.employee_id, e.name, lr.category, lr.reason, lr.start_date, lr.end_date, lr.working_days,
	lr.manager_status, lr.hr_status, lr.overall_status,
	lr.manager_id, lr.manager_reason, lr.manager_acted_at,
	lr.hr_id, lr.hr_reason, lr.hr_acted_at,
	lr.created_at, lr.updated_at`

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var lr leave.LeaveRequest
	err := row.Scan(
		&lr.ID,
		&lr.EmployeeID,
		&lr.EmployeeName,
		&lr.Category,
		&lr.Reason,
		&lr.StartDate,
		&lr.EndDate,
		&lr.WorkingDays,
		&lr.ManagerStatus,
		&lr.HRStatus,
		&lr.OverallStatus,
		&lr.ManagerID,
		&lr.ManagerReason,
		&lr.ManagerActedAt,
		&lr.HRID,
		&lr.HRReason,
		&lr.HRActedAt,
		&lr.CreatedAt,
		&lr.UpdatedAt,
	)
	return lr, err
}

func collectLeaveRequests(rows pgx.Rows) ([]leave.LeaveRequest, error) {
	defer rows.Close()
	var requests []leave.LeaveRequest
	for rows.Next() {
		lr, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, lr)
	}
	return requests, rows.Err()
}

// Create implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_requests (
			id, employee_id, category, reason,
			start_date, end_date, working_days,
			manager_status, hr_status, overall_status,
			created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3,
			$4, $5, $6,
			'Pending', 'Pending', 'Pending',
			NOW(), NOW()
		) RETURNING id, manager_status, hr_status, overall_status, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		request.EmployeeID, request.Category, request.Reason,
		request.StartDate, request.EndDate, request.WorkingDays,
	).Scan(&request.ID, &request.ManagerStatus, &request.HRStatus, &request.OverallStatus, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("create leave request: %w", err)
	}
	return request, nil
}

func (r *leaveRequestRepositoryImpl) get(ctx context.Context, id string, forUpdate bool) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leave_requests lr
		INNER JOIN employees e ON e.id = lr.employee_id
		WHERE lr.id = $1
	`, leaveRequestColumns)
	if forUpdate {
		query += " FOR UPDATE OF lr"
	}
	lr, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, err
	}
	return lr, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.get(ctx, id, true)
}

// ListByEmployee implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string, filter leave.LeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	q := GetQuerier(ctx, r.db)
	filter.Normalize()

	query := fmt.Sprintf(`
		SELECT %s
		FROM leave_requests lr
		INNER JOIN employees e ON e.id = lr.employee_id
		WHERE lr.employee_id = $1 AND ($2::text IS NULL OR lr.overall_status = $2)
		ORDER BY lr.created_at DESC
		LIMIT $3 OFFSET $4
	`, leaveRequestColumns)
	rows, err := q.Query(ctx, query, employeeID, filter.Status, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, err
	}
	requests, err := collectLeaveRequests(rows)
	if err != nil {
		return nil, 0, err
	}

	// Get total count
	var total int64
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM leave_requests
		WHERE employee_id = $1 AND ($2::text IS NULL OR overall_status = $2)
	`, employeeID, filter.Status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// ListPendingForManager implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListPendingForManager(ctx context.Context, managerID string) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leave_requests lr
		INNER JOIN employees e ON e.id = lr.employee_id
		INNER JOIN employee_managers m ON m.employee_id = lr.employee_id AND m.manager_id = $1
		WHERE lr.manager_status = 'Pending' AND lr.overall_status = 'Pending'
		ORDER BY lr.created_at ASC
	`, leaveRequestColumns)
	rows, err := q.Query(ctx, query, managerID)
	if err != nil {
		return nil, err
	}
	return collectLeaveRequests(rows)
}

// ListPendingForHR implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListPendingForHR(ctx context.Context, hrID string, allEmployees bool) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leave_requests lr
		INNER JOIN employees e ON e.id = lr.employee_id
		WHERE lr.manager_status = 'Approved' AND lr.hr_status = 'Pending' AND lr.overall_status = 'Pending'
		  AND ($2 OR EXISTS (SELECT 1 FROM employee_hrs h WHERE h.employee_id = lr.employee_id AND h.hr_id = $1))
		ORDER BY lr.created_at ASC
	`, leaveRequestColumns)
	rows, err := q.Query(ctx, query, hrID, allEmployees)
	if err != nil {
		return nil, err
	}
	return collectLeaveRequests(rows)
}

// HasOverlap reports whether a non-rejected request of the employee intersects [start, end].
func (r *leaveRequestRepositoryImpl) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE employee_id = $1 AND overall_status <> 'Rejected'
			  AND start_date <= $3 AND end_date >= $2
		)
	`, employeeID, start, end).Scan(&exists)
	return exists, err
}

// RecordManagerDecision implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) RecordManagerDecision(ctx context.Context, id string, status approval.SlotStatus, overall leave.OverallStatus, actorID string, reason *string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE leave_requests
		SET manager_status = $2, overall_status = $3, manager_id = $4, manager_reason = $5,
			manager_acted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND manager_status = 'Pending'
	`, id, status, overall, actorID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return leave.ErrManagerAlreadyActed
	}
	return nil
}

// RecordHRDecision implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) RecordHRDecision(ctx context.Context, id string, status approval.SlotStatus, overall leave.OverallStatus, actorID string, reason *string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE leave_requests
		SET hr_status = $2, overall_status = $3, hr_id = $4, hr_reason = $5,
			hr_acted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND hr_status = 'Pending'
	`, id, status, overall, actorID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return leave.ErrHRAlreadyActed
	}
	return nil
}
