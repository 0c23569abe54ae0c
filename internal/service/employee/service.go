package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type EmployeeServiceImpl struct {
	tx             database.Transactor
	employeeRepo   employee.EmployeeRepository
	onboardingRepo employee.OnboardingRepository
	overrideRepo   employee.RoleOverrideRepository
	balanceRepo    leave.BalanceRepository
	projectRepo    project.ProjectRepository
	allocationRepo allocation.AllocationRepository
	assignments    assignment.Service
	authority      auth.AuthorityResolver
	notifier       notification.Notifier
	now            func() time.Time
}

func NewEmployeeService(
	tx database.Transactor,
	employeeRepo employee.EmployeeRepository,
	onboardingRepo employee.OnboardingRepository,
	overrideRepo employee.RoleOverrideRepository,
	balanceRepo leave.BalanceRepository,
	projectRepo project.ProjectRepository,
	allocationRepo allocation.AllocationRepository,
	assignments assignment.Service,
	authority auth.AuthorityResolver,
	notifier notification.Notifier,
) employee.Service {
	return &EmployeeServiceImpl{
		tx:             tx,
		employeeRepo:   employeeRepo,
		onboardingRepo: onboardingRepo,
		overrideRepo:   overrideRepo,
		balanceRepo:    balanceRepo,
		projectRepo:    projectRepo,
		allocationRepo: allocationRepo,
		assignments:    assignments,
		authority:      authority,
		notifier:       notifier,
		now:            time.Now,
	}
}

func requireHR(actor employee.Employee) error {
	if !auth.HasRole(actor, employee.RoleHR) {
		return employee.ErrHRAccessRequired
	}
	return nil
}

func requireAdmin(actor employee.Employee) error {
	if actor.Role != employee.RoleAdmin {
		return employee.ErrAdminAccessRequired
	}
	return nil
}

// CreateOnboarding implements employee.Service.
func (s *EmployeeServiceImpl) CreateOnboarding(ctx context.Context, actor employee.Employee, req employee.CreateOnboardingRequest) (employee.OnboardingResponse, error) {
	if err := requireHR(actor); err != nil {
		return employee.OnboardingResponse{}, err
	}

	// Catch obvious conflicts before the record waits in the queue.
	if _, err := s.employeeRepo.GetByEmployeeCode(ctx, req.EmployeeCode); err == nil {
		return employee.OnboardingResponse{}, employee.ErrEmployeeCodeExists
	} else if !errors.Is(err, employee.ErrEmployeeNotFound) {
		return employee.OnboardingResponse{}, err
	}
	if req.CompanyEmail != nil && *req.CompanyEmail != "" {
		if _, err := s.employeeRepo.GetByCompanyEmail(ctx, *req.CompanyEmail); err == nil {
			return employee.OnboardingResponse{}, employee.ErrCompanyEmailExists
		} else if !errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.OnboardingResponse{}, err
		}
	}
	for _, id := range append(append([]string{}, req.ManagerIDs...), req.HRIDs...) {
		if _, err := s.employeeRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return employee.OnboardingResponse{}, employee.ErrInvalidAssignee
			}
			return employee.OnboardingResponse{}, err
		}
	}

	o, err := s.onboardingRepo.Create(ctx, employee.Onboarding{
		EmployeeCode:   req.EmployeeCode,
		Name:           req.Name,
		Email:          req.Email,
		CompanyEmail:   req.CompanyEmail,
		Role:           req.ParsedRole,
		SuperHR:        req.SuperHR,
		LocationID:     req.LocationID,
		EmploymentType: employee.EmploymentType(req.EmploymentType),
		DateOfJoining:  req.ParsedDateOfJoining,
		Weekoffs:       req.Weekoffs,
		ManagerIDs:     req.ManagerIDs,
		HRIDs:          req.HRIDs,
		Status:         employee.OnboardingStatusPending,
		CreatedBy:      actor.ID,
	})
	if err != nil {
		return employee.OnboardingResponse{}, err
	}
	return employee.NewOnboardingResponse(o), nil
}

// ListOnboarding implements employee.Service.
func (s *EmployeeServiceImpl) ListOnboarding(ctx context.Context, actor employee.Employee, status *employee.OnboardingStatus) ([]employee.OnboardingResponse, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	list, err := s.onboardingRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]employee.OnboardingResponse, 0, len(list))
	for _, o := range list {
		out = append(out, employee.NewOnboardingResponse(o))
	}
	return out, nil
}

// ApproveOnboarding implements employee.Service. The employee row, zeroed
// leave balance, assignments and this month's In-House allocation are written
// in one transaction.
func (s *EmployeeServiceImpl) ApproveOnboarding(ctx context.Context, actor employee.Employee, onboardingID string) (employee.EmployeeResponse, error) {
	if err := requireHR(actor); err != nil {
		return employee.EmployeeResponse{}, err
	}

	var (
		emp  employee.Employee
		resp assignment.AssignmentsResponse
	)
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.onboardingRepo.GetByIDForUpdate(txCtx, onboardingID)
		if err != nil {
			return err
		}
		if o.Status != employee.OnboardingStatusPending {
			return employee.ErrOnboardingAlreadyClosed
		}

		emp, err = s.employeeRepo.Create(txCtx, employee.Employee{
			EmployeeCode:     o.EmployeeCode,
			Name:             o.Name,
			Email:            o.Email,
			CompanyEmail:     o.CompanyEmail,
			Role:             o.Role,
			SuperHR:          o.SuperHR,
			LocationID:       o.LocationID,
			OnboardingStatus: employee.OnboardingStatusApproved,
			LoginStatus:      employee.LoginStatusActive,
			EmploymentType:   o.EmploymentType,
			DateOfJoining:    o.DateOfJoining,
			AuthProvider:     employee.AuthProviderLocal,
			Weekoffs:         o.Weekoffs,
		})
		if err != nil {
			return err
		}
		if err := s.balanceRepo.Init(txCtx, emp.ID); err != nil {
			return fmt.Errorf("init leave balance: %w", err)
		}

		managers, hrs := o.ManagerIDs, o.HRIDs
		resp, err = s.assignments.Replace(txCtx, actor, emp.ID, &managers, &hrs)
		if err != nil {
			return err
		}

		reserved, err := s.projectRepo.Reserved(txCtx)
		if err != nil {
			return err
		}
		if _, err := s.allocationRepo.Upsert(txCtx, allocation.Allocation{
			EmployeeID:    emp.ID,
			ProjectID:     reserved.InHouseID,
			Month:         allocation.MonthOf(s.now()),
			AllocatedDays: allocation.DefaultInHouseDays,
		}); err != nil {
			return fmt.Errorf("grant in-house allocation: %w", err)
		}
		if err := s.projectRepo.Assign(txCtx, emp.ID, reserved.InHouseID); err != nil {
			return fmt.Errorf("assign in-house project: %w", err)
		}

		return s.onboardingRepo.MarkProcessed(txCtx, o.ID, employee.OnboardingStatusApproved, &emp.ID)
	})
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	slog.Info("onboarding approved", "onboarding_id", onboardingID, "employee_id", emp.ID, "actor_id", actor.ID)
	s.notifyOnboarded(ctx, actor, emp, resp)
	return employee.NewEmployeeResponse(emp), nil
}

func (s *EmployeeServiceImpl) notifyOnboarded(ctx context.Context, actor employee.Employee, emp employee.Employee, resp assignment.AssignmentsResponse) {
	recipients := []notification.Recipient{notification.EmployeeRecipient(emp)}
	for _, m := range append(append([]assignment.MemberResponse{}, resp.Managers...), resp.HRs...) {
		recipients = append(recipients, notification.Recipient{EmployeeID: m.EmployeeID, Name: m.Name, Email: m.Email})
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeEmployeeOnboarded,
		Title:      "Welcome aboard",
		Message:    fmt.Sprintf("%s has been onboarded as %s.", emp.Name, emp.Role),
		RequestID:  emp.ID,
		SenderID:   &actor.ID,
		Recipients: recipients,
		Data:       map[string]interface{}{"employee_id": emp.ID, "employee_code": emp.EmployeeCode},
	})
}

// RejectOnboarding implements employee.Service.
func (s *EmployeeServiceImpl) RejectOnboarding(ctx context.Context, actor employee.Employee, onboardingID string) error {
	if err := requireHR(actor); err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.onboardingRepo.GetByIDForUpdate(txCtx, onboardingID)
		if err != nil {
			return err
		}
		if o.Status != employee.OnboardingStatusPending {
			return employee.ErrOnboardingAlreadyClosed
		}
		return s.onboardingRepo.MarkProcessed(txCtx, o.ID, employee.OnboardingStatusRejected, nil)
	})
}

// GetEmployee implements employee.Service.
func (s *EmployeeServiceImpl) GetEmployee(ctx context.Context, actor employee.Employee, id string) (employee.EmployeeResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		a, err := s.authority.AuthorityOver(ctx, actor, id)
		if err != nil {
			return employee.EmployeeResponse{}, err
		}
		if err := auth.CanViewSubject(a).Err(); err != nil {
			return employee.EmployeeResponse{}, err
		}
	}
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	return employee.NewEmployeeResponse(emp), nil
}

// ListEmployees implements employee.Service.
func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context, actor employee.Employee, filter employee.EmployeeFilter) (employee.ListEmployeeResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR, employee.RoleAccountManager, employee.RoleITAdmin) {
		return employee.ListEmployeeResponse{}, employee.ErrHRAccessRequired
	}
	filter.Normalize()
	list, total, err := s.employeeRepo.List(ctx, filter)
	if err != nil {
		return employee.ListEmployeeResponse{}, err
	}
	out := make([]employee.EmployeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, employee.NewEmployeeResponse(e))
	}
	return employee.ListEmployeeResponse{TotalCount: total, Page: filter.Page, Limit: filter.Limit, Employees: out}, nil
}

// ListRoleOverrides implements employee.Service.
func (s *EmployeeServiceImpl) ListRoleOverrides(ctx context.Context, actor employee.Employee) ([]employee.RoleOverride, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.overrideRepo.List(ctx)
}

// UpsertRoleOverride implements employee.Service. The override applies at the
// account's next Microsoft sign-in.
func (s *EmployeeServiceImpl) UpsertRoleOverride(ctx context.Context, actor employee.Employee, req employee.UpsertRoleOverrideRequest) (employee.RoleOverride, error) {
	if err := requireAdmin(actor); err != nil {
		return employee.RoleOverride{}, err
	}
	o, err := s.overrideRepo.Upsert(ctx, employee.RoleOverride{
		Email:   req.Email,
		Subject: req.Subject,
		Role:    req.ParsedRole,
		SuperHR: req.SuperHR,
	})
	if err != nil {
		return employee.RoleOverride{}, err
	}
	slog.Info("role override saved", "override_id", o.ID, "role", o.Role, "actor_id", actor.ID)
	return o, nil
}

// DeleteRoleOverride implements employee.Service.
func (s *EmployeeServiceImpl) DeleteRoleOverride(ctx context.Context, actor employee.Employee, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.overrideRepo.Delete(ctx, id)
}
