package software

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/software"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
)

const workflow = "software"

var errInvalidITAdmin = apperror.Validation("it_admin_id must reference an active IT Admin")

type SoftwareServiceImpl struct {
	tx database.Transactor
	software.RequestRepository
	compliance software.ComplianceRepository
	employees  employee.EmployeeRepository
	registry   assignment.Registry
	authority  auth.AuthorityResolver
	notifier   notification.Notifier
	links      notification.Links
	metrics    *metrics.Metrics
}

func NewSoftwareService(
	tx database.Transactor,
	requests software.RequestRepository,
	compliance software.ComplianceRepository,
	employees employee.EmployeeRepository,
	registry assignment.Registry,
	authority auth.AuthorityResolver,
	notifier notification.Notifier,
	links notification.Links,
	m *metrics.Metrics,
) software.SoftwareService {
	return &SoftwareServiceImpl{
		tx:                tx,
		RequestRepository: requests,
		compliance:        compliance,
		employees:         employees,
		registry:          registry,
		authority:         authority,
		notifier:          notifier,
		links:             links,
		metrics:           m,
	}
}

// Submit implements software.SoftwareService. Employees without a manager
// are routed straight to IT.
func (s *SoftwareServiceImpl) Submit(ctx context.Context, actor employee.Employee, req software.SubmitSoftwareRequest) (software.SoftwareRequestResponse, error) {
	if req.ITAdminID != nil {
		admin, err := s.employees.GetByID(ctx, *req.ITAdminID)
		if err != nil || admin.Role != employee.RoleITAdmin || !admin.IsActive() {
			return software.SoftwareRequestResponse{}, errInvalidITAdmin
		}
	}

	managers, err := s.registry.ManagersOf(ctx, actor.ID)
	if err != nil {
		return software.SoftwareRequestResponse{}, fmt.Errorf("failed to load managers: %w", err)
	}

	r := software.SoftwareRequest{
		EmployeeID:           actor.ID,
		ITAdminID:            req.ITAdminID,
		AssetID:              req.AssetID,
		SoftwareName:         req.SoftwareName,
		SoftwareVersion:      req.SoftwareVersion,
		Duration:             req.Duration,
		BusinessUnitLocation: req.BusinessUnitLocation,
		Justification:        req.Justification,
		Status:               software.StatusPending,
	}
	if len(managers) > 0 {
		r.ManagerID = &managers[0].EmployeeID
	}

	created, err := s.Create(ctx, r)
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}
	created.EmployeeName = &actor.Name

	s.metrics.Transition(metrics.WorkflowSoftware, "submit")
	slog.Info("software request submitted", "request_id", created.ID, "employee_id", actor.ID, "direct_to_it", created.ManagerID == nil)

	recipients := assignment.Recipients(managers)
	if len(managers) == 0 {
		recipients = s.itRecipients(ctx, created)
	}
	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeSoftwareSubmitted,
		Title:      "Software request awaiting your approval",
		Message:    fmt.Sprintf("%s requested %s.", actor.Name, describe(created)),
		RequestID:  created.ID,
		SenderID:   &actor.ID,
		Recipients: recipients,
		Actions:    s.links.ApproveReject(workflow, created.ID),
		Data:       eventData(created),
	})
	return software.NewSoftwareRequestResponse(created, nil), nil
}

// Get implements software.SoftwareService.
func (s *SoftwareServiceImpl) Get(ctx context.Context, actor employee.Employee, id string) (software.SoftwareRequestResponse, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}
	if err := s.canView(ctx, actor, r); err != nil {
		return software.SoftwareRequestResponse{}, err
	}
	return s.detail(ctx, r)
}

// ListMine implements software.SoftwareService.
func (s *SoftwareServiceImpl) ListMine(ctx context.Context, actor employee.Employee) ([]software.SoftwareRequestResponse, error) {
	list, err := s.ListByEmployee(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return software.NewSoftwareRequestResponses(list), nil
}

// ListPendingAsManager implements software.SoftwareService. IT Admins also
// see pending requests of employees that have no manager.
func (s *SoftwareServiceImpl) ListPendingAsManager(ctx context.Context, actor employee.Employee) ([]software.SoftwareRequestResponse, error) {
	list, err := s.ListPendingForManager(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if auth.HasRole(actor, employee.RoleITAdmin) {
		direct, err := s.ListPendingWithoutManager(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range direct {
			if r.EmployeeID != actor.ID {
				list = append(list, r)
			}
		}
	}
	return software.NewSoftwareRequestResponses(list), nil
}

// ListByStatus implements software.SoftwareService.
func (s *SoftwareServiceImpl) ListByStatus(ctx context.Context, actor employee.Employee, status *software.Status) ([]software.SoftwareRequestResponse, error) {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return nil, software.ErrITAdminRequired
	}
	list, err := s.RequestRepository.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return software.NewSoftwareRequestResponses(list), nil
}

// ActAsManager implements software.SoftwareService.
func (s *SoftwareServiceImpl) ActAsManager(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (software.SoftwareRequestResponse, error) {
	var r software.SoftwareRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeDecision(txCtx, actor, r); err != nil {
			return err
		}
		if r.Status != software.StatusPending {
			return software.ErrAlreadyDecided
		}

		status := software.StatusRejected
		if req.Parsed == approval.ActionApprove {
			status = software.StatusApproved
		}
		if err := s.RecordDecision(txCtx, r.ID, status, actor.ID, req.Reason); err != nil {
			return err
		}
		r, err = s.GetByID(txCtx, r.ID)
		return err
	})
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowSoftware, "manager_"+strings.ToLower(string(req.Parsed)))
	slog.Info("software request decision", "request_id", r.ID, "actor_id", actor.ID, "status", r.Status)

	owner := s.ownerRecipients(ctx, r)
	if r.Status == software.StatusApproved {
		s.notifier.Notify(ctx, notification.Event{
			Type:       notification.TypeSoftwareApproved,
			Title:      "Software request approved",
			Message:    fmt.Sprintf("%s approved the request for %s. IT will send the compliance questionnaire.", actor.Name, describe(r)),
			RequestID:  r.ID,
			SenderID:   &actor.ID,
			Recipients: append(owner, s.itRecipients(ctx, r)...),
			Actions:    []notification.ActionLink{{Label: "View request", URL: s.links.View(workflow, r.ID)}},
			Data:       eventData(r),
		})
	} else {
		s.notifier.Notify(ctx, notification.Event{
			Type:       notification.TypeSoftwareRejected,
			Title:      "Software request rejected",
			Message:    fmt.Sprintf("Your request for %s was rejected by %s.%s", describe(r), actor.Name, reasonSuffix(req.Reason)),
			RequestID:  r.ID,
			SenderID:   &actor.ID,
			Recipients: owner,
			Actions:    []notification.ActionLink{{Label: "View request", URL: s.links.View(workflow, r.ID)}},
			Data:       eventData(r),
		})
	}
	return software.NewSoftwareRequestResponse(r, nil), nil
}

// DispatchQuestionnaire implements software.SoftwareService. It may be
// repeated until the employee answers.
func (s *SoftwareServiceImpl) DispatchQuestionnaire(ctx context.Context, actor employee.Employee, id string) (software.SoftwareRequestResponse, error) {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return software.SoftwareRequestResponse{}, software.ErrITAdminRequired
	}

	var (
		r         software.SoftwareRequest
		questions []software.Question
	)
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := checkOpenForCompliance(r); err != nil {
			return err
		}
		if r.ComplianceAnswered {
			return software.ErrAnswersAlreadyRecorded
		}
		questions, err = s.compliance.ListQuestions(txCtx, true)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return software.ErrNoActiveQuestions
		}
		if err := s.MarkQuestionnaireSent(txCtx, r.ID, actor.ID); err != nil {
			return err
		}
		r, err = s.GetByID(txCtx, r.ID)
		return err
	})
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowSoftware, "questionnaire")
	slog.Info("compliance questionnaire dispatched", "request_id", r.ID, "actor_id", actor.ID, "questions", len(questions))

	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Text)
	}
	data := eventData(r)
	data["questions"] = texts
	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeSoftwareQuestionnaire,
		Title:      "Compliance questionnaire",
		Message:    fmt.Sprintf("Please answer the compliance questionnaire for %s.", describe(r)),
		RequestID:  r.ID,
		SenderID:   &actor.ID,
		Recipients: s.ownerRecipients(ctx, r),
		Actions:    []notification.ActionLink{{Label: "Answer questionnaire", URL: s.links.Action(workflow, r.ID, "questionnaire")}},
		Data:       data,
	})
	return software.NewSoftwareRequestResponse(r, nil), nil
}

// SubmitAnswers implements software.SoftwareService. Answers must cover the
// active question set exactly.
func (s *SoftwareServiceImpl) SubmitAnswers(ctx context.Context, actor employee.Employee, id string, req software.SubmitAnswersRequest) (software.SoftwareRequestResponse, error) {
	var r software.SoftwareRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if r.EmployeeID != actor.ID {
			return software.ErrNotRequester
		}
		if err := checkOpenForCompliance(r); err != nil {
			return err
		}
		if r.QuestionnaireSentAt == nil {
			return software.ErrQuestionnaireNotSent
		}
		if r.ComplianceAnswered {
			return software.ErrAnswersAlreadyRecorded
		}

		active, err := s.compliance.ListQuestions(txCtx, true)
		if err != nil {
			return err
		}
		texts := make(map[string]string, len(active))
		for _, q := range active {
			texts[q.ID] = q.Text
		}
		if len(req.Answers) != len(active) {
			return software.ErrIncompleteAnswers
		}
		answers := make([]software.Answer, 0, len(req.Answers))
		for _, a := range req.Answers {
			text, ok := texts[a.QuestionID]
			if !ok {
				return software.ErrIncompleteAnswers
			}
			answers = append(answers, software.Answer{
				RequestID:    r.ID,
				QuestionID:   a.QuestionID,
				QuestionText: text,
				Answer:       strings.TrimSpace(a.Answer),
			})
		}
		if err := s.compliance.InsertAnswers(txCtx, answers); err != nil {
			return err
		}
		if err := s.MarkComplianceAnswered(txCtx, r.ID); err != nil {
			return err
		}
		r, err = s.GetByID(txCtx, r.ID)
		return err
	})
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowSoftware, "answer")
	slog.Info("compliance answers recorded", "request_id", r.ID, "employee_id", actor.ID)

	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeSoftwareAnswered,
		Title:      "Compliance questionnaire answered",
		Message:    fmt.Sprintf("%s answered the compliance questionnaire for %s. The request can be completed.", actor.Name, describe(r)),
		RequestID:  r.ID,
		SenderID:   &actor.ID,
		Recipients: s.itRecipients(ctx, r),
		Actions:    []notification.ActionLink{{Label: "Complete request", URL: s.links.Action(workflow, r.ID, "complete")}},
		Data:       eventData(r),
	})
	return s.detail(ctx, r)
}

// Complete implements software.SoftwareService.
func (s *SoftwareServiceImpl) Complete(ctx context.Context, actor employee.Employee, id string) (software.SoftwareRequestResponse, error) {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return software.SoftwareRequestResponse{}, software.ErrITAdminRequired
	}

	var r software.SoftwareRequest
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := checkOpenForCompliance(r); err != nil {
			return err
		}
		if !r.ComplianceAnswered {
			return software.ErrComplianceNotAnswered
		}
		if err := s.MarkCompleted(txCtx, r.ID, actor.ID); err != nil {
			return err
		}
		r, err = s.GetByID(txCtx, r.ID)
		return err
	})
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}

	s.metrics.Transition(metrics.WorkflowSoftware, "complete")
	slog.Info("software request completed", "request_id", r.ID, "actor_id", actor.ID)

	s.notifier.Notify(ctx, notification.Event{
		Type:       notification.TypeSoftwareCompleted,
		Title:      "Software request completed",
		Message:    fmt.Sprintf("Your request for %s is complete.", describe(r)),
		RequestID:  r.ID,
		SenderID:   &actor.ID,
		Recipients: s.ownerRecipients(ctx, r),
		Actions:    []notification.ActionLink{{Label: "View request", URL: s.links.View(workflow, r.ID)}},
		Data:       eventData(r),
	})
	return s.detail(ctx, r)
}

// ListQuestions implements software.SoftwareService.
func (s *SoftwareServiceImpl) ListQuestions(ctx context.Context, actor employee.Employee, includeInactive bool) ([]software.QuestionResponse, error) {
	if includeInactive && !auth.HasRole(actor, employee.RoleITAdmin) {
		return nil, software.ErrITAdminRequired
	}
	list, err := s.compliance.ListQuestions(ctx, !includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]software.QuestionResponse, 0, len(list))
	for _, q := range list {
		out = append(out, software.NewQuestionResponse(q))
	}
	return out, nil
}

// CreateQuestion implements software.SoftwareService.
func (s *SoftwareServiceImpl) CreateQuestion(ctx context.Context, actor employee.Employee, req software.QuestionRequest) (software.QuestionResponse, error) {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return software.QuestionResponse{}, software.ErrITAdminRequired
	}
	q := software.Question{Text: strings.TrimSpace(req.Text), IsActive: true, SortOrder: req.SortOrder}
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	created, err := s.compliance.CreateQuestion(ctx, q)
	if err != nil {
		return software.QuestionResponse{}, err
	}
	return software.NewQuestionResponse(created), nil
}

// UpdateQuestion implements software.SoftwareService.
func (s *SoftwareServiceImpl) UpdateQuestion(ctx context.Context, actor employee.Employee, id string, req software.QuestionRequest) (software.QuestionResponse, error) {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return software.QuestionResponse{}, software.ErrITAdminRequired
	}
	q, err := s.compliance.GetQuestion(ctx, id)
	if err != nil {
		return software.QuestionResponse{}, err
	}
	q.Text = strings.TrimSpace(req.Text)
	q.SortOrder = req.SortOrder
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	updated, err := s.compliance.UpdateQuestion(ctx, q)
	if err != nil {
		return software.QuestionResponse{}, err
	}
	return software.NewQuestionResponse(updated), nil
}

// DeleteQuestion implements software.SoftwareService.
func (s *SoftwareServiceImpl) DeleteQuestion(ctx context.Context, actor employee.Employee, id string) error {
	if !auth.HasRole(actor, employee.RoleITAdmin) {
		return software.ErrITAdminRequired
	}
	return s.compliance.DeleteQuestion(ctx, id)
}

// authorizeDecision lets the assigned manager decide; requests filed without
// a manager go to any IT Admin.
func (s *SoftwareServiceImpl) authorizeDecision(ctx context.Context, actor employee.Employee, r software.SoftwareRequest) error {
	if r.ManagerID == nil {
		if actor.ID == r.EmployeeID {
			return auth.ErrSelfApproval
		}
		if !auth.HasRole(actor, employee.RoleITAdmin) {
			return software.ErrITAdminRequired
		}
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, r.EmployeeID)
	if err != nil {
		return err
	}
	return auth.CanActAsManager(a).Err()
}

func (s *SoftwareServiceImpl) canView(ctx context.Context, actor employee.Employee, r software.SoftwareRequest) error {
	if actor.ID == r.EmployeeID || auth.HasRole(actor, employee.RoleITAdmin) {
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, r.EmployeeID)
	if err != nil {
		return err
	}
	return auth.CanViewSubject(a).Err()
}

func (s *SoftwareServiceImpl) detail(ctx context.Context, r software.SoftwareRequest) (software.SoftwareRequestResponse, error) {
	answers, err := s.compliance.ListAnswers(ctx, r.ID)
	if err != nil {
		return software.SoftwareRequestResponse{}, err
	}
	return software.NewSoftwareRequestResponse(r, answers), nil
}

func checkOpenForCompliance(r software.SoftwareRequest) error {
	switch r.Status {
	case software.StatusApproved:
		return nil
	case software.StatusCompleted:
		return software.ErrAlreadyCompleted
	}
	return software.ErrNotApproved
}

func (s *SoftwareServiceImpl) ownerRecipients(ctx context.Context, r software.SoftwareRequest) []notification.Recipient {
	emp, err := s.employees.GetByID(ctx, r.EmployeeID)
	if err != nil {
		slog.Error("failed to load employee for notification", "request_id", r.ID, "error", err)
		return nil
	}
	return []notification.Recipient{notification.EmployeeRecipient(emp)}
}

// itRecipients addresses the request's IT Admin, or every active IT Admin
// when none has picked it up yet.
func (s *SoftwareServiceImpl) itRecipients(ctx context.Context, r software.SoftwareRequest) []notification.Recipient {
	if r.ITAdminID != nil {
		admin, err := s.employees.GetByID(ctx, *r.ITAdminID)
		if err == nil {
			return []notification.Recipient{notification.EmployeeRecipient(admin)}
		}
		slog.Warn("assigned IT admin not found, notifying all IT admins", "request_id", r.ID, "error", err)
	}

	role := employee.RoleITAdmin
	var out []notification.Recipient
	for page := 1; ; page++ {
		filter := employee.EmployeeFilter{Role: &role, Page: page, Limit: 100}
		list, total, err := s.employees.List(ctx, filter)
		if err != nil {
			slog.Error("failed to load IT admins for notification", "request_id", r.ID, "error", err)
			return out
		}
		for _, emp := range list {
			if emp.IsActive() && emp.ID != r.EmployeeID {
				out = append(out, notification.EmployeeRecipient(emp))
			}
		}
		if len(list) == 0 || int64(page*filter.Limit) >= total {
			return out
		}
	}
}

func describe(r software.SoftwareRequest) string {
	if r.SoftwareVersion != nil && *r.SoftwareVersion != "" {
		return r.SoftwareName + " " + *r.SoftwareVersion
	}
	return r.SoftwareName
}

func eventData(r software.SoftwareRequest) map[string]interface{} {
	data := map[string]interface{}{
		"software_name": r.SoftwareName,
		"status":        string(r.Status),
	}
	if r.Duration != nil {
		data["duration"] = *r.Duration
	}
	return data
}

func reasonSuffix(reason *string) string {
	if reason == nil {
		return ""
	}
	return " Reason: " + *reason
}
