package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `p.id, p.name, p.account, p.status, p.start_date, p.end_date, p.created_at, p.updated_at`

type projectRepositoryImpl struct {
	db *database.DB
}

func NewProjectRepository(db *database.DB) project.ProjectRepository {
	return &projectRepositoryImpl{db: db}
}

func scanProject(row pgx.Row) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Account, &p.Status, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProjects(rows pgx.Rows) ([]project.Project, error) {
	defer rows.Close()
	var list []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Create implements project.ProjectRepository.
func (r *projectRepositoryImpl) Create(ctx context.Context, p project.Project) (project.Project, error) {
	q := GetQuerier(ctx, r.db)
	if p.Status == "" {
		p.Status = project.StatusActive
	}
	err := q.QueryRow(ctx, `
		INSERT INTO projects (id, name, account, status, start_date, end_date, created_at, updated_at)
		VALUES (uuidv7(), $1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, p.Name, p.Account, p.Status, p.StartDate, p.EndDate).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return project.Project{}, project.ErrProjectExists
		}
		return project.Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetByID implements project.ProjectRepository.
func (r *projectRepositoryImpl) GetByID(ctx context.Context, id string) (project.Project, error) {
	q := GetQuerier(ctx, r.db)
	p, err := scanProject(q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM projects p WHERE p.id = $1`, projectColumns), id))
	if err != nil {
		if isNoRows(err) {
			return project.Project{}, project.ErrProjectNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

// GetByNameAccount implements project.ProjectRepository. Matching is case-insensitive.
func (r *projectRepositoryImpl) GetByNameAccount(ctx context.Context, name, account string) (project.Project, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s FROM projects p
		WHERE lower(p.name) = lower(btrim($1)) AND lower(p.account) = lower(btrim($2))
	`, projectColumns)
	p, err := scanProject(q.QueryRow(ctx, query, name, account))
	if err != nil {
		if isNoRows(err) {
			return project.Project{}, project.ErrProjectNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

// Ensure implements project.ProjectRepository.
func (r *projectRepositoryImpl) Ensure(ctx context.Context, name, account string) (project.Project, error) {
	q := GetQuerier(ctx, r.db)
	_, err := q.Exec(ctx, `
		INSERT INTO projects (id, name, account, status, created_at, updated_at)
		VALUES (uuidv7(), btrim($1), btrim($2), 'active', NOW(), NOW())
		ON CONFLICT DO NOTHING
	`, name, account)
	if err != nil {
		return project.Project{}, fmt.Errorf("ensure project: %w", err)
	}
	return r.GetByNameAccount(ctx, name, account)
}

// List implements project.ProjectRepository.
func (r *projectRepositoryImpl) List(ctx context.Context, status *project.Status) ([]project.Project, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM projects p
		WHERE ($1::text IS NULL OR p.status = $1)
		ORDER BY p.account, p.name
	`, projectColumns), status)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// ListForEmployee implements project.ProjectRepository.
func (r *projectRepositoryImpl) ListForEmployee(ctx context.Context, employeeID string) ([]project.Project, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM projects p
		INNER JOIN project_employees pe ON pe.project_id = p.id
		WHERE pe.employee_id = $1
		ORDER BY p.account, p.name
	`, projectColumns), employeeID)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// Reserved implements project.ProjectRepository.
func (r *projectRepositoryImpl) Reserved(ctx context.Context) (project.Reserved, error) {
	inHouse, err := r.GetByNameAccount(ctx, project.InHouseName, project.InHouseAccount)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return project.Reserved{}, project.ErrReservedMissing
		}
		return project.Reserved{}, err
	}
	unassigned, err := r.GetByNameAccount(ctx, project.UnassignedName, project.UnassignedAccount)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return project.Reserved{}, project.ErrReservedMissing
		}
		return project.Reserved{}, err
	}
	return project.Reserved{InHouseID: inHouse.ID, UnassignedID: unassigned.ID}, nil
}

// Assign implements project.ProjectRepository.
func (r *projectRepositoryImpl) Assign(ctx context.Context, employeeID, projectID string) error {
	q := GetQuerier(ctx, r.db)
	_, err := q.Exec(ctx, `
		INSERT INTO project_employees (project_id, employee_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING
	`, projectID, employeeID)
	return err
}

// IsAssigned implements project.ProjectRepository.
func (r *projectRepositoryImpl) IsAssigned(ctx context.Context, employeeID, projectID string) (bool, error) {
	q := GetQuerier(ctx, r.db)
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM project_employees WHERE project_id = $1 AND employee_id = $2)
	`, projectID, employeeID).Scan(&exists)
	return exists, err
}

// ReplaceEmployees implements project.ProjectRepository.
func (r *projectRepositoryImpl) ReplaceEmployees(ctx context.Context, projectID string, employeeIDs []string) error {
	q := GetQuerier(ctx, r.db)
	ids := nonNilStrings(employeeIDs)
	if _, err := q.Exec(ctx, `
		DELETE FROM project_employees WHERE project_id = $1 AND NOT (employee_id = ANY($2::uuid[]))
	`, projectID, ids); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO project_employees (project_id, employee_id, assigned_at)
		SELECT $1, id, NOW() FROM unnest($2::uuid[]) AS id
		ON CONFLICT DO NOTHING
	`, projectID, ids)
	if err != nil && isForeignKeyViolation(err) {
		return project.ErrProjectNotFound
	}
	return err
}

// ListEmployeeIDs implements project.ProjectRepository.
func (r *projectRepositoryImpl) ListEmployeeIDs(ctx context.Context, projectID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `SELECT employee_id FROM project_employees WHERE project_id = $1 ORDER BY assigned_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
