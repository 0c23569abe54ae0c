package leave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
)

const workflow = "leave"

type LeaveServiceImpl struct {
	tx database.Transactor
	leave.LeaveRequestRepository
	balances  leave.BalanceRepository
	employees employee.EmployeeRepository
	calendar  calendar.Service
	registry  assignment.Registry
	authority auth.AuthorityResolver
	notifier  notification.Notifier
	links     notification.Links
	metrics   *metrics.Metrics
}

func NewLeaveService(
	tx database.Transactor,
	requests leave.LeaveRequestRepository,
	balances leave.BalanceRepository,
	employees employee.EmployeeRepository,
	calendarService calendar.Service,
	registry assignment.Registry,
	authority auth.AuthorityResolver,
	notifier notification.Notifier,
	links notification.Links,
	m *metrics.Metrics,
) leave.LeaveService {
	return &LeaveServiceImpl{
		tx:                     tx,
		LeaveRequestRepository: requests,
		balances:               balances,
		employees:              employees,
		calendar:               calendarService,
		registry:               registry,
		authority:              authority,
		notifier:               notifier,
		links:                  links,
		metrics:                m,
	}
}

// Submit implements leave.LeaveService.
func (s *LeaveServiceImpl) Submit(ctx context.Context, actor employee.Employee, req leave.SubmitLeaveRequest) (leave.LeaveRequestResponse, error) {
	days, err := s.calendar.WorkingDays(ctx, actor, req.Start, req.End)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if days == 0 {
		return leave.LeaveRequestResponse{}, leave.ErrNoWorkingDays
	}

	managers, err := s.registry.ManagersOf(ctx, actor.ID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to load managers: %w", err)
	}
	if len(managers) == 0 {
		return leave.LeaveRequestResponse{}, leave.ErrNoManagerAssigned
	}

	var created leave.LeaveRequest
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Serialises concurrent submissions of the same employee for the overlap check.
		if err := s.employees.LockForUpdate(txCtx, actor.ID); err != nil {
			return err
		}
		overlap, err := s.HasOverlap(txCtx, actor.ID, req.Start, req.End)
		if err != nil {
			return err
		}
		if overlap {
			return leave.ErrOverlappingLeave
		}
		created, err = s.Create(txCtx, leave.LeaveRequest{
			EmployeeID:    actor.ID,
			Category:      req.Category,
			Reason:        req.Reason,
			StartDate:     calendar.Civil(req.Start),
			EndDate:       calendar.Civil(req.End),
			WorkingDays:   days,
			ManagerStatus: approval.SlotPending,
			HRStatus:      approval.SlotPending,
			OverallStatus: leave.StatusPending,
		})
		return err
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	created.EmployeeName = &actor.Name

	s.metrics.Transition(metrics.WorkflowLeave, "submit")
	slog.Info("leave request submitted", "request_id", created.ID, "employee_id", actor.ID, "working_days", days)

	s.notifier.Notify(ctx, notification.Event{
		Type:  notification.TypeLeaveSubmitted,
		Title: "Leave request awaiting your approval",
		Message: fmt.Sprintf("%s requested %s from %s to %s (%d working days).",
			actor.Name, created.Category, created.StartDate.Format(calendar.DateLayout),
			created.EndDate.Format(calendar.DateLayout), days),
		RequestID:  created.ID,
		SenderID:   &actor.ID,
		Recipients: assignment.Recipients(managers),
		Actions:    s.links.ApproveReject(workflow, created.ID),
		Data:       eventData(created),
	})
	return leave.NewLeaveRequestResponse(created), nil
}

// Get implements leave.LeaveService.
func (s *LeaveServiceImpl) Get(ctx context.Context, actor employee.Employee, id string) (leave.LeaveRequestResponse, error) {
	lr, err := s.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if err := s.canView(ctx, actor, lr.EmployeeID); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	return leave.NewLeaveRequestResponse(lr), nil
}

// ListMine implements leave.LeaveService.
func (s *LeaveServiceImpl) ListMine(ctx context.Context, actor employee.Employee, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	filter.Normalize()
	list, total, err := s.ListByEmployee(ctx, actor.ID, filter)
	if err != nil {
		return leave.ListLeaveRequestResponse{}, err
	}
	return leave.ListLeaveRequestResponse{
		TotalCount:    total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		LeaveRequests: leave.NewLeaveRequestResponses(list),
	}, nil
}

// ListPendingAsManager implements leave.LeaveService.
func (s *LeaveServiceImpl) ListPendingAsManager(ctx context.Context, actor employee.Employee) ([]leave.LeaveRequestResponse, error) {
	list, err := s.ListPendingForManager(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return leave.NewLeaveRequestResponses(list), nil
}

// ListPendingAsHR implements leave.LeaveService. Super-HR sees every
// employee's requests.
func (s *LeaveServiceImpl) ListPendingAsHR(ctx context.Context, actor employee.Employee) ([]leave.LeaveRequestResponse, error) {
	if actor.Role != employee.RoleHR {
		return nil, employee.ErrHRAccessRequired
	}
	list, err := s.ListPendingForHR(ctx, actor.ID, auth.IsSuperHR(actor))
	if err != nil {
		return nil, err
	}
	return leave.NewLeaveRequestResponses(list), nil
}

// ActAsManager implements leave.LeaveService.
func (s *LeaveServiceImpl) ActAsManager(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (leave.LeaveRequestResponse, error) {
	var lr leave.LeaveRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		lr, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		a, err := s.authority.AuthorityOver(txCtx, actor, lr.EmployeeID)
		if err != nil {
			return err
		}
		if err := auth.CanActAsManager(a).Err(); err != nil {
			return err
		}
		if lr.ManagerStatus != approval.SlotPending {
			return leave.ErrManagerAlreadyActed
		}
		if lr.OverallStatus != leave.StatusPending {
			return leave.ErrRequestClosed
		}

		overall := leave.StatusPending
		if req.Parsed == approval.ActionReject {
			overall = leave.StatusRejected
		}
		if err := s.RecordManagerDecision(txCtx, lr.ID, req.Parsed.Outcome(), overall, actor.ID, req.Reason); err != nil {
			return err
		}
		lr, err = s.GetByID(txCtx, lr.ID)
		return err
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowLeave, "manager_"+actionLabel(req.Parsed))
	slog.Info("leave request manager decision", "request_id", lr.ID, "actor_id", actor.ID, "action", req.Parsed)

	if req.Parsed == approval.ActionApprove {
		s.notifyHRs(ctx, actor, lr)
	} else {
		s.notifyEmployee(ctx, actor, lr, notification.TypeLeaveRejected, "Leave request rejected",
			fmt.Sprintf("Your %s request was rejected by %s.%s", lr.Category, actor.Name, reasonSuffix(req.Reason)))
	}
	return leave.NewLeaveRequestResponse(lr), nil
}

// ActAsHR implements leave.LeaveService. Approval debits the balance in the
// same transaction that closes the request.
func (s *LeaveServiceImpl) ActAsHR(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (leave.LeaveRequestResponse, error) {
	var lr leave.LeaveRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		lr, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		a, err := s.authority.AuthorityOver(txCtx, actor, lr.EmployeeID)
		if err != nil {
			return err
		}
		if err := auth.CanActAsHR(a).Err(); err != nil {
			return err
		}
		if lr.HRStatus != approval.SlotPending {
			return leave.ErrHRAlreadyActed
		}
		if lr.OverallStatus != leave.StatusPending {
			return leave.ErrRequestClosed
		}
		if lr.ManagerStatus != approval.SlotApproved {
			return leave.ErrManagerApprovalPending
		}

		overall := leave.StatusRejected
		if req.Parsed == approval.ActionApprove {
			overall = leave.StatusApproved
		}
		if err := s.RecordHRDecision(txCtx, lr.ID, req.Parsed.Outcome(), overall, actor.ID, req.Reason); err != nil {
			return err
		}
		if overall == leave.StatusApproved {
			if err := s.balances.Debit(txCtx, lr.EmployeeID, lr.Category, lr.WorkingDays); err != nil {
				return fmt.Errorf("failed to debit leave balance: %w", err)
			}
		}
		lr, err = s.GetByID(txCtx, lr.ID)
		return err
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowLeave, "hr_"+actionLabel(req.Parsed))
	slog.Info("leave request HR decision", "request_id", lr.ID, "actor_id", actor.ID, "action", req.Parsed)

	if req.Parsed == approval.ActionApprove {
		s.notifyEmployee(ctx, actor, lr, notification.TypeLeaveApproved, "Leave request approved",
			fmt.Sprintf("Your %s request from %s to %s was approved.", lr.Category,
				lr.StartDate.Format(calendar.DateLayout), lr.EndDate.Format(calendar.DateLayout)))
	} else {
		s.notifyEmployee(ctx, actor, lr, notification.TypeLeaveRejected, "Leave request rejected",
			fmt.Sprintf("Your %s request was rejected by HR.%s", lr.Category, reasonSuffix(req.Reason)))
	}
	return leave.NewLeaveRequestResponse(lr), nil
}

// GetBalance implements leave.LeaveService. An empty employeeID means the actor.
func (s *LeaveServiceImpl) GetBalance(ctx context.Context, actor employee.Employee, employeeID string) (leave.BalanceResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return leave.BalanceResponse{}, err
	}
	b, err := s.balances.Get(ctx, employeeID)
	if err != nil {
		return leave.BalanceResponse{}, err
	}
	return leave.NewBalanceResponse(b), nil
}

// SetBalance implements leave.LeaveService.
func (s *LeaveServiceImpl) SetBalance(ctx context.Context, actor employee.Employee, employeeID string, req leave.SetBalanceRequest) (leave.BalanceResponse, error) {
	var out leave.Balance
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if actor.Role != employee.RoleAdmin {
			a, err := s.authority.AuthorityOver(txCtx, actor, employeeID)
			if err != nil {
				return err
			}
			if err := auth.CanActAsHR(a).Err(); err != nil {
				return err
			}
		}
		if err := s.employees.LockForUpdate(txCtx, employeeID); err != nil {
			return err
		}
		if err := s.balances.Init(txCtx, employeeID); err != nil {
			return err
		}
		current, err := s.balances.Get(txCtx, employeeID)
		if err != nil {
			return err
		}
		out, err = s.balances.Set(txCtx, req.Apply(current))
		return err
	})
	if err != nil {
		return leave.BalanceResponse{}, err
	}
	slog.Info("leave balance set", "employee_id", employeeID, "actor_id", actor.ID)
	return leave.NewBalanceResponse(out), nil
}

// WorkingDays implements leave.LeaveService.
func (s *LeaveServiceImpl) WorkingDays(ctx context.Context, actor employee.Employee, req leave.WorkingDaysRequest) (leave.WorkingDaysResponse, error) {
	subject := actor
	if req.EmployeeID != nil && *req.EmployeeID != actor.ID {
		if err := s.canView(ctx, actor, *req.EmployeeID); err != nil {
			return leave.WorkingDaysResponse{}, err
		}
		var err error
		subject, err = s.employees.GetByID(ctx, *req.EmployeeID)
		if err != nil {
			return leave.WorkingDaysResponse{}, err
		}
	}
	days, err := s.calendar.WorkingDays(ctx, subject, req.Start, req.End)
	if err != nil {
		return leave.WorkingDaysResponse{}, err
	}
	return leave.WorkingDaysResponse{
		StartDate:   req.Start.Format(calendar.DateLayout),
		EndDate:     req.End.Format(calendar.DateLayout),
		WorkingDays: days,
	}, nil
}

func (s *LeaveServiceImpl) canView(ctx context.Context, actor employee.Employee, subjectID string) error {
	if actor.ID == subjectID || actor.Role == employee.RoleAdmin {
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, subjectID)
	if err != nil {
		return err
	}
	return auth.CanViewSubject(a).Err()
}

func (s *LeaveServiceImpl) notifyHRs(ctx context.Context, actor employee.Employee, lr leave.LeaveRequest) {
	hrs, err := s.registry.HRsOf(ctx, lr.EmployeeID)
	if err != nil {
		slog.Error("failed to load HRs for notification", "request_id", lr.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeLeaveAwaitingHR,
		Title:      "Leave request awaiting HR approval",
		Message:    fmt.Sprintf("%s approved a %s request (%d working days). HR approval is needed.", actor.Name, lr.Category, lr.WorkingDays),
		RequestID:  lr.ID,
		SenderID:   &actor.ID,
		Recipients: assignment.Recipients(hrs),
		Actions:    s.links.ApproveReject(workflow, lr.ID),
		Data:       eventData(lr),
	})
}

func (s *LeaveServiceImpl) notifyEmployee(ctx context.Context, actor employee.Employee, lr leave.LeaveRequest, t notification.NotificationType, title, message string) {
	emp, err := s.employees.GetByID(ctx, lr.EmployeeID)
	if err != nil {
		slog.Error("failed to load employee for notification", "request_id", lr.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:       t,
		Title:      title,
		Message:    message,
		RequestID:  lr.ID,
		SenderID:   &actor.ID,
		Recipients: []notification.Recipient{notification.EmployeeRecipient(emp)},
		Actions:    []notification.ActionLink{{Label: "View request", URL: s.links.View(workflow, lr.ID)}},
		Data:       eventData(lr),
	})
}

func eventData(lr leave.LeaveRequest) map[string]interface{} {
	return map[string]interface{}{
		"leave_request_id": lr.ID,
		"leave_type":       string(lr.Category),
		"start_date":       lr.StartDate.Format(calendar.DateLayout),
		"end_date":         lr.EndDate.Format(calendar.DateLayout),
		"working_days":     lr.WorkingDays,
		"status":           string(lr.OverallStatus),
	}
}

func actionLabel(a approval.Action) string {
	if a == approval.ActionApprove {
		return "approve"
	}
	return "reject"
}

func reasonSuffix(reason *string) string {
	if reason == nil || *reason == "" {
		return ""
	}
	return " Reason: " + *reason
}
