package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type ProjectServiceImpl struct {
	tx database.Transactor
	project.ProjectRepository
	employees employee.EmployeeRepository
	authority auth.AuthorityResolver
}

func NewProjectService(tx database.Transactor, projectRepo project.ProjectRepository, employees employee.EmployeeRepository, authority auth.AuthorityResolver) project.ProjectService {
	return &ProjectServiceImpl{
		tx:                tx,
		ProjectRepository: projectRepo,
		employees:         employees,
		authority:         authority,
	}
}

// List implements project.ProjectService.
func (s *ProjectServiceImpl) List(ctx context.Context, actor employee.Employee, status *project.Status) ([]project.ProjectResponse, error) {
	reserved, err := s.Reserved(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.ProjectRepository.List(ctx, status)
	if err != nil {
		return nil, err
	}
	return project.NewProjectResponses(list, reserved), nil
}

// Create implements project.ProjectService.
func (s *ProjectServiceImpl) Create(ctx context.Context, actor employee.Employee, req project.CreateProjectRequest) (project.ProjectResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		return project.ProjectResponse{}, employee.ErrHRAccessRequired
	}
	name, account := strings.TrimSpace(req.Name), strings.TrimSpace(req.Account)
	if _, err := s.GetByNameAccount(ctx, name, account); err == nil {
		return project.ProjectResponse{}, project.ErrProjectExists
	} else if !errors.Is(err, project.ErrProjectNotFound) {
		return project.ProjectResponse{}, err
	}

	created, err := s.ProjectRepository.Create(ctx, project.Project{
		Name:      name,
		Account:   account,
		Status:    project.StatusActive,
		StartDate: req.Start,
		EndDate:   req.End,
	})
	if err != nil {
		return project.ProjectResponse{}, err
	}
	slog.Info("project created", "project_id", created.ID, "actor_id", actor.ID)
	return project.NewProjectResponse(created, project.Reserved{}), nil
}

// Mine implements project.ProjectService.
func (s *ProjectServiceImpl) Mine(ctx context.Context, actor employee.Employee) ([]project.ProjectResponse, error) {
	return s.listFor(ctx, actor.ID)
}

// ForEmployee implements project.ProjectService.
func (s *ProjectServiceImpl) ForEmployee(ctx context.Context, actor employee.Employee, employeeID string) ([]project.ProjectResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR, employee.RoleAccountManager) {
		a, err := s.authority.AuthorityOver(ctx, actor, employeeID)
		if err != nil {
			return nil, err
		}
		if err := auth.CanViewSubject(a).Err(); err != nil {
			return nil, err
		}
	}
	return s.listFor(ctx, employeeID)
}

// ReplaceEmployees implements project.ProjectService. Reserved projects keep
// their memberships since every employee is attached to them implicitly.
func (s *ProjectServiceImpl) ReplaceEmployees(ctx context.Context, actor employee.Employee, projectID string, req project.AssignEmployeesRequest) ([]string, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		return nil, employee.ErrHRAccessRequired
	}

	var ids []string
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.GetByID(txCtx, projectID); err != nil {
			return err
		}
		reserved, err := s.Reserved(txCtx)
		if err != nil {
			return err
		}
		if reserved.Exempt(projectID) {
			return project.ErrReservedReadOnly
		}

		seen := make(map[string]bool, len(req.EmployeeIDs))
		unique := make([]string, 0, len(req.EmployeeIDs))
		for _, id := range req.EmployeeIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := s.employees.GetByID(txCtx, id); err != nil {
				return err
			}
			unique = append(unique, id)
		}
		if err := s.ProjectRepository.ReplaceEmployees(txCtx, projectID, unique); err != nil {
			return err
		}
		ids, err = s.ListEmployeeIDs(txCtx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("project employees replaced", "project_id", projectID, "count", len(ids), "actor_id", actor.ID)
	return ids, nil
}

func (s *ProjectServiceImpl) listFor(ctx context.Context, employeeID string) ([]project.ProjectResponse, error) {
	reserved, err := s.Reserved(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.ListForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return project.NewProjectResponses(list, reserved), nil
}
