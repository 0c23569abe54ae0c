package software

import "context"

type RequestRepository interface {
	Create(ctx context.Context, req SoftwareRequest) (SoftwareRequest, error)
	GetByID(ctx context.Context, id string) (SoftwareRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (SoftwareRequest, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]SoftwareRequest, error)
	ListPendingForManager(ctx context.Context, managerID string) ([]SoftwareRequest, error)
	// ListPendingWithoutManager lists pending requests of employees with no manager.
	ListPendingWithoutManager(ctx context.Context) ([]SoftwareRequest, error)
	ListByStatus(ctx context.Context, status *Status) ([]SoftwareRequest, error)
	RecordDecision(ctx context.Context, id string, status Status, deciderID string, reason *string) error
	MarkQuestionnaireSent(ctx context.Context, id string, itAdminID string) error
	MarkComplianceAnswered(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, itAdminID string) error
}

type ComplianceRepository interface {
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	// DeleteQuestion soft-deletes; answers already given keep their question.
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, activeOnly bool) ([]Question, error)
	InsertAnswers(ctx context.Context, answers []Answer) error
	ListAnswers(ctx context.Context, requestID string) ([]Answer, error)
}
