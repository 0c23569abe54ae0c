package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type AttendanceRepository interface {
	// GetByEmployeeDate returns the day's attendance with its entries, or nil.
	GetByEmployeeDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)

	// Upsert writes the (employee, date) row and returns it with its id.
	Upsert(ctx context.Context, a Attendance) (Attendance, error)

	// ReplaceEntries deletes the existing entries of an attendance and inserts entries.
	ReplaceEntries(ctx context.Context, attendanceID string, entries []Entry) error

	// SumDaysInRange totals days_worked of the employee in [start, end], skipping exclude.
	SumDaysInRange(ctx context.Context, employeeID string, start, end, exclude time.Time) (decimal.Decimal, error)

	ListRange(ctx context.Context, employeeID string, start, end time.Time) ([]Attendance, error)
	DailyProjects(ctx context.Context, employeeID string, start, end time.Time) ([]DailyProjectRow, error)
}
