package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type attendanceRepositoryImpl struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db}
}

// GetByEmployeeDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetByEmployeeDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	var a attendance.Attendance
	err := q.QueryRow(ctx, `
		SELECT id, employee_id, date, day_of_week, action, total_hours, created_at, updated_at
		FROM attendances
		WHERE employee_id = $1 AND date = $2
	`, employeeID, date).Scan(&a.ID, &a.EmployeeID, &a.Date, &a.DayOfWeek, &a.Action, &a.TotalHours, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	entries, err := r.listEntries(ctx, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Entries = entries[a.ID]
	return &a, nil
}

func (r *attendanceRepositoryImpl) listEntries(ctx context.Context, attendanceIDs []string) (map[string][]attendance.Entry, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT ae.id, ae.attendance_id, ae.project_id, p.name, ae.subtask, ae.hours, ae.days_worked
		FROM attendance_entries ae
		INNER JOIN projects p ON p.id = ae.project_id
		WHERE ae.attendance_id = ANY($1::uuid[])
		ORDER BY ae.id
	`, attendanceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string][]attendance.Entry)
	for rows.Next() {
		var e attendance.Entry
		if err := rows.Scan(&e.ID, &e.AttendanceID, &e.ProjectID, &e.ProjectName, &e.Subtask, &e.Hours, &e.DaysWorked); err != nil {
			return nil, err
		}
		entries[e.AttendanceID] = append(entries[e.AttendanceID], e)
	}
	return entries, rows.Err()
}

// Upsert implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Upsert(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO attendances (id, employee_id, date, day_of_week, action, total_hours, created_at, updated_at)
		VALUES (uuidv7(), $1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (employee_id, date) DO UPDATE
		SET day_of_week = EXCLUDED.day_of_week, action = EXCLUDED.action,
			total_hours = EXCLUDED.total_hours, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, a.EmployeeID, a.Date, a.DayOfWeek, a.Action, a.TotalHours).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("upsert attendance: %w", err)
	}
	return a, nil
}

// ReplaceEntries implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ReplaceEntries(ctx context.Context, attendanceID string, entries []attendance.Entry) error {
	q := GetQuerier(ctx, r.db)
	if _, err := q.Exec(ctx, `DELETE FROM attendance_entries WHERE attendance_id = $1`, attendanceID); err != nil {
		return fmt.Errorf("clear attendance entries: %w", err)
	}
	for _, e := range entries {
		_, err := q.Exec(ctx, `
			INSERT INTO attendance_entries (id, attendance_id, project_id, subtask, hours, days_worked)
			VALUES (uuidv7(), $1, $2, $3, $4, $5)
		`, attendanceID, e.ProjectID, e.Subtask, e.Hours, e.DaysWorked)
		if err != nil {
			return fmt.Errorf("insert attendance entry: %w", err)
		}
	}
	return nil
}

// SumDaysInRange implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) SumDaysInRange(ctx context.Context, employeeID string, start, end, exclude time.Time) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)
	var total decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(ae.days_worked), 0)
		FROM attendance_entries ae
		INNER JOIN attendances a ON a.id = ae.attendance_id
		WHERE a.employee_id = $1 AND a.date BETWEEN $2 AND $3 AND a.date <> $4
	`, employeeID, start, end, exclude).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum attendance days: %w", err)
	}
	return total, nil
}

// ListRange implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListRange(ctx context.Context, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, employee_id, date, day_of_week, action, total_hours, created_at, updated_at
		FROM attendances
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (attendance.Attendance, error) {
		var a attendance.Attendance
		err := row.Scan(&a.ID, &a.EmployeeID, &a.Date, &a.DayOfWeek, &a.Action, &a.TotalHours, &a.CreatedAt, &a.UpdatedAt)
		return a, err
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	entries, err := r.listEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Entries = entries[list[i].ID]
	}
	return list, nil
}

// DailyProjects implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) DailyProjects(ctx context.Context, employeeID string, start, end time.Time) ([]attendance.DailyProjectRow, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT a.date, ae.project_id, p.name, SUM(ae.hours), SUM(ae.days_worked)
		FROM attendance_entries ae
		INNER JOIN attendances a ON a.id = ae.attendance_id
		INNER JOIN projects p ON p.id = ae.project_id
		WHERE a.employee_id = $1 AND a.date BETWEEN $2 AND $3
		GROUP BY a.date, ae.project_id, p.name
		ORDER BY a.date, p.name
	`, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (attendance.DailyProjectRow, error) {
		var d attendance.DailyProjectRow
		err := row.Scan(&d.Date, &d.ProjectID, &d.ProjectName, &d.Hours, &d.DaysWorked)
		return d, err
	})
}
