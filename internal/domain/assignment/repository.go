package assignment

import "context"

// Registry stores the employee to manager and employee to HR relations and
// is the only source used to decide who may approve for whom.
type Registry interface {
	ManagersOf(ctx context.Context, employeeID string) ([]Member, error)
	HRsOf(ctx context.Context, employeeID string) ([]Member, error)
	EmployeesManagedBy(ctx context.Context, managerID string) ([]Member, error)
	EmployeesHRdBy(ctx context.Context, hrID string) ([]Member, error)

	IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error)
	IsHROf(ctx context.Context, hrID, employeeID string) (bool, error)

	// Replace swaps the whole set for one relation of an employee.
	Replace(ctx context.Context, relation Relation, employeeID string, memberIDs []string) error
}
