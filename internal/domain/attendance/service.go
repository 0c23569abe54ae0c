package attendance

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type AttendanceService interface {
	// Post writes one day atomically with its allocation consumption.
	Post(ctx context.Context, actor employee.Employee, req PostRequest) (AttendanceResponse, error)
	// PostBulk posts each day independently, in order.
	PostBulk(ctx context.Context, actor employee.Employee, req BulkPostRequest) (BulkPostResponse, error)
	Weekly(ctx context.Context, actor employee.Employee, employeeID string, weekStart string) (WeeklyResponse, error)
	Daily(ctx context.Context, actor employee.Employee, employeeID string, date string) (AttendanceResponse, error)
	ProjectDaily(ctx context.Context, actor employee.Employee, employeeID string, month string) ([]ProjectDailyResponse, error)
}
