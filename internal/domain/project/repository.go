package project

import "context"

type ProjectRepository interface {
	Create(ctx context.Context, p Project) (Project, error)
	GetByID(ctx context.Context, id string) (Project, error)
	GetByNameAccount(ctx context.Context, name, account string) (Project, error)
	// Ensure returns the project with this name and account, creating it when missing.
	Ensure(ctx context.Context, name, account string) (Project, error)
	List(ctx context.Context, status *Status) ([]Project, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]Project, error)
	Reserved(ctx context.Context) (Reserved, error)

	// Assign adds an employee to a project; existing assignments are kept.
	Assign(ctx context.Context, employeeID, projectID string) error
	IsAssigned(ctx context.Context, employeeID, projectID string) (bool, error)
	// ReplaceEmployees sets the full employee list of a project.
	ReplaceEmployees(ctx context.Context, projectID string, employeeIDs []string) error
	ListEmployeeIDs(ctx context.Context, projectID string) ([]string, error)
}
