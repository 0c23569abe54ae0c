package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type assignmentRegistryImpl struct {
	db *database.DB
}

func NewAssignmentRegistry(db *database.DB) assignment.Registry {
	return &assignmentRegistryImpl{db: db}
}

// relationTable maps a relation to its table and member column.
func relationTable(relation assignment.Relation) (table, column string, err error) {
	switch relation {
	case assignment.RelationManager:
		return "employee_managers", "manager_id", nil
	case assignment.RelationHR:
		return "employee_hrs", "hr_id", nil
	}
	return "", "", fmt.Errorf("unknown relation %q", relation)
}

func (r *assignmentRegistryImpl) listMembers(ctx context.Context, query string, arg string) ([]assignment.Member, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []assignment.Member
	for rows.Next() {
		var m assignment.Member
		if err := rows.Scan(&m.EmployeeID, &m.Name, &m.Email, &m.CompanyEmail, &m.Role, &m.AssignedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ManagersOf implements assignment.Registry.
func (r *assignmentRegistryImpl) ManagersOf(ctx context.Context, employeeID string) ([]assignment.Member, error) {
	return r.listMembers(ctx, `
		SELECT e.id, e.name, e.email, e.company_email, e.role, a.assigned_at
		FROM employee_managers a
		INNER JOIN employees e ON e.id = a.manager_id
		WHERE a.employee_id = $1
		ORDER BY a.assigned_at, e.name
	`, employeeID)
}

// HRsOf implements assignment.Registry.
func (r *assignmentRegistryImpl) HRsOf(ctx context.Context, employeeID string) ([]assignment.Member, error) {
	return r.listMembers(ctx, `
		SELECT e.id, e.name, e.email, e.company_email, e.role, a.assigned_at
		FROM employee_hrs a
		INNER JOIN employees e ON e.id = a.hr_id
		WHERE a.employee_id = $1
		ORDER BY a.assigned_at, e.name
	`, employeeID)
}

// EmployeesManagedBy implements assignment.Registry.
func (r *assignmentRegistryImpl) EmployeesManagedBy(ctx context.Context, managerID string) ([]assignment.Member, error) {
	return r.listMembers(ctx, `
		SELECT e.id, e.name, e.email, e.company_email, e.role, a.assigned_at
		FROM employee_managers a
		INNER JOIN employees e ON e.id = a.employee_id
		WHERE a.manager_id = $1
		ORDER BY e.name
	`, managerID)
}

// EmployeesHRdBy implements assignment.Registry.
func (r *assignmentRegistryImpl) EmployeesHRdBy(ctx context.Context, hrID string) ([]assignment.Member, error) {
	return r.listMembers(ctx, `
		SELECT e.id, e.name, e.email, e.company_email, e.role, a.assigned_at
		FROM employee_hrs a
		INNER JOIN employees e ON e.id = a.employee_id
		WHERE a.hr_id = $1
		ORDER BY e.name
	`, hrID)
}

// IsManagerOf implements assignment.Registry.
func (r *assignmentRegistryImpl) IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM employee_managers WHERE employee_id = $1 AND manager_id = $2)`,
		employeeID, managerID,
	).Scan(&exists)
	return exists, err
}

// IsHROf implements assignment.Registry.
func (r *assignmentRegistryImpl) IsHROf(ctx context.Context, hrID, employeeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM employee_hrs WHERE employee_id = $1 AND hr_id = $2)`,
		employeeID, hrID,
	).Scan(&exists)
	return exists, err
}

// Replace implements assignment.Registry. Members that stay keep their
// original assigned_at.
func (r *assignmentRegistryImpl) Replace(ctx context.Context, relation assignment.Relation, employeeID string, memberIDs []string) error {
	table, column, err := relationTable(relation)
	if err != nil {
		return err
	}
	q := GetQuerier(ctx, r.db)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE employee_id = $1 AND NOT (%s = ANY($2::uuid[]))`, table, column)
	if _, err := q.Exec(ctx, deleteQuery, employeeID, nonNilStrings(memberIDs)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (employee_id, %s, assigned_at)
		SELECT $1, m, NOW() FROM unnest($2::uuid[]) AS m
		ON CONFLICT DO NOTHING
	`, table, column)
	if _, err := q.Exec(ctx, insertQuery, employeeID, nonNilStrings(memberIDs)); err != nil {
		if isForeignKeyViolation(err) {
			return assignment.ErrUnknownMember
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}
