package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type assignmentServiceImpl struct {
	tx        database.Transactor
	registry  assignment.Registry
	employees employee.EmployeeRepository
	authority auth.AuthorityResolver
}

func NewAssignmentService(
	tx database.Transactor,
	registry assignment.Registry,
	employees employee.EmployeeRepository,
	authority auth.AuthorityResolver,
) assignment.Service {
	return &assignmentServiceImpl{tx: tx, registry: registry, employees: employees, authority: authority}
}

// Get implements assignment.Service.
func (s *assignmentServiceImpl) Get(ctx context.Context, actor employee.Employee, employeeID string) (assignment.AssignmentsResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		a, err := s.authority.AuthorityOver(ctx, actor, employeeID)
		if err != nil {
			return assignment.AssignmentsResponse{}, err
		}
		if err := auth.CanViewSubject(a).Err(); err != nil {
			return assignment.AssignmentsResponse{}, err
		}
	}
	if _, err := s.employees.GetByID(ctx, employeeID); err != nil {
		return assignment.AssignmentsResponse{}, err
	}
	return s.load(ctx, employeeID)
}

func (s *assignmentServiceImpl) load(ctx context.Context, employeeID string) (assignment.AssignmentsResponse, error) {
	managers, err := s.registry.ManagersOf(ctx, employeeID)
	if err != nil {
		return assignment.AssignmentsResponse{}, fmt.Errorf("list managers: %w", err)
	}
	hrs, err := s.registry.HRsOf(ctx, employeeID)
	if err != nil {
		return assignment.AssignmentsResponse{}, fmt.Errorf("list HRs: %w", err)
	}
	return assignment.AssignmentsResponse{
		EmployeeID: employeeID,
		Managers:   assignment.NewMemberResponses(managers),
		HRs:        assignment.NewMemberResponses(hrs),
	}, nil
}

// Reportees implements assignment.Service.
func (s *assignmentServiceImpl) Reportees(ctx context.Context, actor employee.Employee) (assignment.ReporteesResponse, error) {
	managed, err := s.registry.EmployeesManagedBy(ctx, actor.ID)
	if err != nil {
		return assignment.ReporteesResponse{}, fmt.Errorf("list managed employees: %w", err)
	}
	hrd, err := s.registry.EmployeesHRdBy(ctx, actor.ID)
	if err != nil {
		return assignment.ReporteesResponse{}, fmt.Errorf("list HR'd employees: %w", err)
	}
	return assignment.ReporteesResponse{
		Managed: assignment.NewMemberResponses(managed),
		HRd:     assignment.NewMemberResponses(hrd),
	}, nil
}

// Replace implements assignment.Service. A nil slice leaves that relation
// untouched; an empty one clears it.
func (s *assignmentServiceImpl) Replace(ctx context.Context, actor employee.Employee, employeeID string, managerIDs, hrIDs *[]string) (assignment.AssignmentsResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		return assignment.AssignmentsResponse{}, employee.ErrHRAccessRequired
	}

	var resp assignment.AssignmentsResponse
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.employees.GetByID(txCtx, employeeID); err != nil {
			return err
		}
		if managerIDs != nil {
			ids := dedupe(*managerIDs)
			if err := s.checkMembers(txCtx, employeeID, ids, false); err != nil {
				return err
			}
			if err := s.registry.Replace(txCtx, assignment.RelationManager, employeeID, ids); err != nil {
				return err
			}
		}
		if hrIDs != nil {
			ids := dedupe(*hrIDs)
			if err := s.checkMembers(txCtx, employeeID, ids, true); err != nil {
				return err
			}
			if err := s.registry.Replace(txCtx, assignment.RelationHR, employeeID, ids); err != nil {
				return err
			}
		}
		var err error
		resp, err = s.load(txCtx, employeeID)
		return err
	})
	if err != nil {
		return assignment.AssignmentsResponse{}, err
	}

	slog.Info("assignments replaced", "employee_id", employeeID, "actor_id", actor.ID,
		"managers", len(resp.Managers), "hrs", len(resp.HRs))
	return resp, nil
}

func (s *assignmentServiceImpl) checkMembers(ctx context.Context, employeeID string, ids []string, hr bool) error {
	for _, id := range ids {
		if id == employeeID {
			return assignment.ErrSelfAssignment
		}
		member, err := s.employees.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return assignment.ErrUnknownMember
			}
			return err
		}
		if !member.IsActive() {
			return assignment.ErrUnknownMember
		}
		if hr && member.Role != employee.RoleHR {
			return assignment.ErrNotHRMember
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
