package expense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/expense"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/hrms-engine/internal/service/file"
)

const workflow = "expense"

type ExpenseServiceImpl struct {
	tx database.Transactor
	expense.ExpenseRepository
	files     file.FileService
	employees employee.EmployeeRepository
	registry  assignment.Registry
	authority auth.AuthorityResolver
	notifier  notification.Notifier
	links     notification.Links
	metrics   *metrics.Metrics
}

func NewExpenseService(
	tx database.Transactor,
	expenseRepo expense.ExpenseRepository,
	files file.FileService,
	employees employee.EmployeeRepository,
	registry assignment.Registry,
	authority auth.AuthorityResolver,
	notifier notification.Notifier,
	links notification.Links,
	m *metrics.Metrics,
) expense.ExpenseService {
	return &ExpenseServiceImpl{
		tx:                tx,
		ExpenseRepository: expenseRepo,
		files:             files,
		employees:         employees,
		registry:          registry,
		authority:         authority,
		notifier:          notifier,
		links:             links,
		metrics:           m,
	}
}

// Submit implements expense.ExpenseService. Receipts are written to storage
// before the transaction and removed again if it fails.
func (s *ExpenseServiceImpl) Submit(ctx context.Context, actor employee.Employee, req expense.SubmitExpenseRequest) (expense.ExpenseResponse, error) {
	if len(req.Receipts) == 0 {
		return expense.ExpenseResponse{}, expense.ErrReceiptRequired
	}

	managers, err := s.registry.ManagersOf(ctx, actor.ID)
	if err != nil {
		return expense.ExpenseResponse{}, fmt.Errorf("failed to load managers: %w", err)
	}
	if len(managers) == 0 {
		return expense.ExpenseResponse{}, expense.ErrNoManagerAssigned
	}

	stored := make([]file.StoredFile, 0, len(req.Receipts))
	for _, rc := range req.Receipts {
		if rc.Size > expense.MaxReceiptSize {
			s.removeFiles(ctx, stored)
			return expense.ExpenseResponse{}, expense.ErrFileTooLarge
		}
		sf, err := s.files.UploadReceipt(ctx, actor.ID, rc.FileName, rc.File)
		if err != nil {
			s.removeFiles(ctx, stored)
			return expense.ExpenseResponse{}, err
		}
		stored = append(stored, sf)
	}

	var (
		created     expense.ExpenseRequest
		attachments []expense.Attachment
	)
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		code, err := s.NextCode(txCtx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to issue request code: %w", err)
		}

		var description *string
		if d := strings.TrimSpace(req.Description); d != "" {
			description = &d
		}
		created, err = s.Create(txCtx, expense.ExpenseRequest{
			Code:          code,
			EmployeeID:    actor.ID,
			Category:      strings.TrimSpace(req.Category),
			Amount:        req.ParsedAmount,
			Currency:      req.Currency,
			Description:   description,
			ExpenseDate:   calendar.Civil(req.ParsedDate),
			TaxApplicable: req.TaxApplicable,
			TaxPercentage: req.ParsedTax,
			FinalAmount:   expense.FinalAmountOf(req.ParsedAmount, req.TaxApplicable, req.ParsedTax),
			Status:        expense.StatusPendingManager,
		})
		if err != nil {
			return err
		}

		for i, sf := range stored {
			a, err := s.AddAttachment(txCtx, expense.Attachment{
				RequestID:   created.ID,
				FileName:    req.Receipts[i].FileName,
				StoredPath:  sf.Key,
				ContentType: sf.ContentType,
				Size:        sf.Size,
			})
			if err != nil {
				return err
			}
			attachments = append(attachments, a)
		}
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, stored)
		return expense.ExpenseResponse{}, err
	}
	created.EmployeeName = &actor.Name

	s.metrics.Transition(metrics.WorkflowExpense, "submit")
	slog.Info("expense request submitted", "request_id", created.ID, "code", created.Code, "employee_id", actor.ID)

	s.notifier.Notify(ctx, notification.Event{
		Type:  notification.TypeExpenseAwaitingApproval,
		Title: "Expense request awaiting your approval",
		Message: fmt.Sprintf("%s submitted expense %s for %s %s.",
			actor.Name, created.Code, created.FinalAmount.StringFixed(2), created.Currency),
		RequestID:  created.ID,
		SenderID:   &actor.ID,
		Recipients: assignment.Recipients(managers),
		Actions:    s.links.ApproveReject(workflow, created.ID),
		Data:       eventData(created),
	})
	return expense.NewExpenseResponse(created, attachments, nil), nil
}

// Get implements expense.ExpenseService.
func (s *ExpenseServiceImpl) Get(ctx context.Context, actor employee.Employee, id string) (expense.ExpenseResponse, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return expense.ExpenseResponse{}, err
	}
	if err := s.canView(ctx, actor, e); err != nil {
		return expense.ExpenseResponse{}, err
	}
	return s.detail(ctx, e)
}

// ListMine implements expense.ExpenseService.
func (s *ExpenseServiceImpl) ListMine(ctx context.Context, actor employee.Employee, filter expense.ExpenseFilter) (expense.ListExpenseResponse, error) {
	filter.Normalize()
	list, total, err := s.ListByEmployee(ctx, actor.ID, filter)
	if err != nil {
		return expense.ListExpenseResponse{}, err
	}
	return expense.ListExpenseResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Expenses:   expense.NewExpenseResponses(list),
	}, nil
}

// ListPending implements expense.ExpenseService.
func (s *ExpenseServiceImpl) ListPending(ctx context.Context, actor employee.Employee, stage expense.Stage) ([]expense.ExpenseResponse, error) {
	list, err := s.pending(ctx, actor, stage)
	if err != nil {
		return nil, err
	}
	return expense.NewExpenseResponses(list), nil
}

func (s *ExpenseServiceImpl) pending(ctx context.Context, actor employee.Employee, stage expense.Stage) ([]expense.ExpenseRequest, error) {
	switch stage {
	case expense.StageManager:
		return s.ListPendingForManager(ctx, actor.ID)
	case expense.StageHR:
		if actor.Role != employee.RoleHR {
			return nil, employee.ErrHRAccessRequired
		}
		return s.ListPendingForHR(ctx, actor.ID, auth.IsSuperHR(actor))
	case expense.StageAccountManager:
		if actor.Role != employee.RoleAccountManager {
			return nil, expense.ErrAccountManagerOnly
		}
		return s.ListByStatus(ctx, expense.StatusPendingAccountManager)
	}
	return nil, expense.ErrUnknownStage
}

// Act implements expense.ExpenseService. Each transition appends one
// history row in the same transaction as the status change.
func (s *ExpenseServiceImpl) Act(ctx context.Context, actor employee.Employee, id string, stage expense.Stage, req approval.ActRequest) (expense.ExpenseResponse, error) {
	var e expense.ExpenseRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		e, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(txCtx, actor, e.EmployeeID, stage); err != nil {
			return err
		}
		if e.Status != stage.Awaits() || e.DeletedAt != nil {
			return expense.ErrStageAlreadyActed
		}

		from, to := e.Status, stage.Next(req.Parsed)
		if err := s.UpdateStatus(txCtx, e.ID, from, to); err != nil {
			return err
		}
		_, err = s.AppendHistory(txCtx, expense.History{
			RequestID:  e.ID,
			ActorID:    actor.ID,
			ActorName:  &actor.Name,
			ActorRole:  stage.ActorRole(),
			Action:     req.Parsed,
			Reason:     req.Reason,
			FromStatus: from,
			ToStatus:   to,
		})
		if err != nil {
			return err
		}
		e.Status = to
		return nil
	})
	if err != nil {
		return expense.ExpenseResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowExpense, string(stage)+"_"+strings.ToLower(string(req.Parsed)))
	slog.Info("expense request decision", "request_id", e.ID, "stage", stage, "actor_id", actor.ID, "status", e.Status)

	switch e.Status {
	case expense.StatusPendingHR:
		hrs, err := s.registry.HRsOf(ctx, e.EmployeeID)
		if err != nil {
			slog.Error("failed to load HRs for notification", "request_id", e.ID, "error", err)
			break
		}
		s.notifyApprovers(ctx, actor, e, assignment.Recipients(hrs), "HR")
	case expense.StatusPendingAccountManager:
		s.notifyApprovers(ctx, actor, e, s.accountManagers(ctx), "Account Manager")
	case expense.StatusApproved:
		s.notifyEmployee(ctx, actor, e, notification.TypeExpenseApproved, "Expense request approved",
			fmt.Sprintf("Your expense %s for %s %s was approved.", e.Code, e.FinalAmount.StringFixed(2), e.Currency))
	default:
		s.notifyEmployee(ctx, actor, e, notification.TypeExpenseRejected, "Expense request rejected",
			fmt.Sprintf("Your expense %s was rejected by %s.%s", e.Code, actor.Name, reasonSuffix(req.Reason)))
	}

	return s.detail(ctx, e)
}

// Cancel implements expense.ExpenseService.
func (s *ExpenseServiceImpl) Cancel(ctx context.Context, actor employee.Employee, id string) error {
	var attachments []expense.Attachment
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		e, err := s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if e.EmployeeID != actor.ID {
			return expense.ErrNotOwner
		}
		if e.Status != expense.StatusPendingManager || e.DeletedAt != nil {
			return expense.ErrCancelNotAllowed
		}
		attachments, err = s.ListAttachments(txCtx, e.ID)
		if err != nil {
			return err
		}
		return s.Delete(txCtx, e.ID)
	})
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if err := s.files.DeleteFile(ctx, a.StoredPath); err != nil {
			slog.Warn("failed to remove cancelled receipt", "request_id", id, "path", a.StoredPath, "error", err)
		}
	}
	s.metrics.Transition(metrics.WorkflowExpense, "cancel")
	slog.Info("expense request cancelled", "request_id", id, "employee_id", actor.ID)
	return nil
}

// Archive implements expense.ExpenseService.
func (s *ExpenseServiceImpl) Archive(ctx context.Context, actor employee.Employee, id string) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		e, err := s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if e.EmployeeID != actor.ID {
			return expense.ErrNotOwner
		}
		if !e.Status.IsTerminal() {
			return expense.ErrArchiveNotAllowed
		}
		if e.DeletedAt != nil {
			return nil
		}
		return s.ExpenseRepository.Archive(txCtx, e.ID)
	})
}

// Statistics implements expense.ExpenseService.
func (s *ExpenseServiceImpl) Statistics(ctx context.Context, actor employee.Employee) (expense.StatisticsResponse, error) {
	stats, err := s.StatisticsByEmployee(ctx, actor.ID)
	if err != nil {
		return expense.StatisticsResponse{}, err
	}
	resp := expense.StatisticsResponse{
		Mine:    make([]expense.StatusStatResponse, 0, len(stats)),
		Pending: map[string]int{},
	}
	for _, st := range stats {
		resp.Mine = append(resp.Mine, expense.StatusStatResponse{Status: string(st.Status), Count: st.Count, Total: st.Total})
	}

	stages := []expense.Stage{expense.StageManager}
	if actor.Role == employee.RoleHR {
		stages = append(stages, expense.StageHR)
	}
	if actor.Role == employee.RoleAccountManager {
		stages = append(stages, expense.StageAccountManager)
	}
	for _, stage := range stages {
		list, err := s.pending(ctx, actor, stage)
		if err != nil {
			return expense.StatisticsResponse{}, err
		}
		resp.Pending[string(stage)] = len(list)
	}
	return resp, nil
}

// OpenAttachment implements expense.ExpenseService. The caller closes the reader.
func (s *ExpenseServiceImpl) OpenAttachment(ctx context.Context, actor employee.Employee, requestID, attachmentID string) (expense.Attachment, io.ReadCloser, error) {
	e, err := s.GetByID(ctx, requestID)
	if err != nil {
		return expense.Attachment{}, nil, err
	}
	if err := s.canView(ctx, actor, e); err != nil {
		return expense.Attachment{}, nil, err
	}
	a, err := s.GetAttachment(ctx, requestID, attachmentID)
	if err != nil {
		return expense.Attachment{}, nil, err
	}
	rc, err := s.files.Open(ctx, a.StoredPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return expense.Attachment{}, nil, expense.ErrAttachmentNotFound
		}
		return expense.Attachment{}, nil, err
	}
	return a, rc, nil
}

func (s *ExpenseServiceImpl) authorize(ctx context.Context, actor employee.Employee, subjectID string, stage expense.Stage) error {
	a, err := s.authority.AuthorityOver(ctx, actor, subjectID)
	if err != nil {
		return err
	}
	switch stage {
	case expense.StageManager:
		return auth.CanActAsManager(a).Err()
	case expense.StageHR:
		return auth.CanActAsHR(a).Err()
	case expense.StageAccountManager:
		return auth.CanActAsAccountManager(actor, a).Err()
	}
	return expense.ErrUnknownStage
}

// canView admits the requester, their approvers, Account Managers and Admins.
func (s *ExpenseServiceImpl) canView(ctx context.Context, actor employee.Employee, e expense.ExpenseRequest) error {
	if actor.ID == e.EmployeeID || auth.HasRole(actor, employee.RoleAccountManager) {
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, e.EmployeeID)
	if err != nil {
		return err
	}
	return auth.CanViewSubject(a).Err()
}

func (s *ExpenseServiceImpl) detail(ctx context.Context, e expense.ExpenseRequest) (expense.ExpenseResponse, error) {
	attachments, err := s.ListAttachments(ctx, e.ID)
	if err != nil {
		return expense.ExpenseResponse{}, err
	}
	history, err := s.ListHistory(ctx, e.ID)
	if err != nil {
		return expense.ExpenseResponse{}, err
	}
	return expense.NewExpenseResponse(e, attachments, history), nil
}

func (s *ExpenseServiceImpl) accountManagers(ctx context.Context) []notification.Recipient {
	role := employee.RoleAccountManager
	var out []notification.Recipient
	for page := 1; ; page++ {
		filter := employee.EmployeeFilter{Role: &role, Page: page, Limit: 100}
		list, total, err := s.employees.List(ctx, filter)
		if err != nil {
			slog.Error("failed to load account managers for notification", "error", err)
			return out
		}
		for _, emp := range list {
			if emp.IsActive() {
				out = append(out, notification.EmployeeRecipient(emp))
			}
		}
		if len(list) == 0 || int64(page*filter.Limit) >= total {
			return out
		}
	}
}

func (s *ExpenseServiceImpl) notifyApprovers(ctx context.Context, actor employee.Employee, e expense.ExpenseRequest, recipients []notification.Recipient, stageName string) {
	s.notifier.Notify(ctx, notification.Event{
		Type:  notification.TypeExpenseAwaitingApproval,
		Title: fmt.Sprintf("Expense request awaiting %s approval", stageName),
		Message: fmt.Sprintf("%s approved expense %s for %s %s. %s approval is needed.",
			actor.Name, e.Code, e.FinalAmount.StringFixed(2), e.Currency, stageName),
		RequestID:  e.ID,
		SenderID:   &actor.ID,
		Recipients: recipients,
		Actions:    s.links.ApproveReject(workflow, e.ID),
		Data:       eventData(e),
	})
}

func (s *ExpenseServiceImpl) notifyEmployee(ctx context.Context, actor employee.Employee, e expense.ExpenseRequest, t notification.NotificationType, title, message string) {
	emp, err := s.employees.GetByID(ctx, e.EmployeeID)
	if err != nil {
		slog.Error("failed to load employee for notification", "request_id", e.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:       t,
		Title:      title,
		Message:    message,
		RequestID:  e.ID,
		SenderID:   &actor.ID,
		Recipients: []notification.Recipient{notification.EmployeeRecipient(emp)},
		Actions:    []notification.ActionLink{{Label: "View request", URL: s.links.View(workflow, e.ID)}},
		Data:       eventData(e),
	})
}

func (s *ExpenseServiceImpl) removeFiles(ctx context.Context, stored []file.StoredFile) {
	for _, sf := range stored {
		if err := s.files.DeleteFile(ctx, sf.Key); err != nil {
			slog.Warn("failed to remove orphaned receipt", "path", sf.Key, "error", err)
		}
	}
}

func eventData(e expense.ExpenseRequest) map[string]interface{} {
	return map[string]interface{}{
		"request_code": e.Code,
		"category":     e.Category,
		"final_amount": e.FinalAmount.StringFixed(2),
		"currency":     e.Currency,
		"status":       string(e.Status),
	}
}

func reasonSuffix(reason *string) string {
	if reason == nil {
		return ""
	}
	return " Reason: " + *reason
}
