package assignment

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type Service interface {
	Get(ctx context.Context, actor employee.Employee, employeeID string) (AssignmentsResponse, error)
	Reportees(ctx context.Context, actor employee.Employee) (ReporteesResponse, error)
	Replace(ctx context.Context, actor employee.Employee, employeeID string, managerIDs, hrIDs *[]string) (AssignmentsResponse, error)
}
