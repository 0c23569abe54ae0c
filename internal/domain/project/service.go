package project

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type ProjectService interface {
	List(ctx context.Context, actor employee.Employee, status *Status) ([]ProjectResponse, error)
	Create(ctx context.Context, actor employee.Employee, req CreateProjectRequest) (ProjectResponse, error)
	Mine(ctx context.Context, actor employee.Employee) ([]ProjectResponse, error)
	ForEmployee(ctx context.Context, actor employee.Employee, employeeID string) ([]ProjectResponse, error)
	ReplaceEmployees(ctx context.Context, actor employee.Employee, projectID string, req AssignEmployeesRequest) ([]string, error)
}
