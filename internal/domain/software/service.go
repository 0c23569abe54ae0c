package software

import (
	"context"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type SoftwareService interface {
	Submit(ctx context.Context, actor employee.Employee, req SubmitSoftwareRequest) (SoftwareRequestResponse, error)
	Get(ctx context.Context, actor employee.Employee, id string) (SoftwareRequestResponse, error)
	ListMine(ctx context.Context, actor employee.Employee) ([]SoftwareRequestResponse, error)
	ListPendingAsManager(ctx context.Context, actor employee.Employee) ([]SoftwareRequestResponse, error)
	ListByStatus(ctx context.Context, actor employee.Employee, status *Status) ([]SoftwareRequestResponse, error)
	ActAsManager(ctx context.Context, actor employee.Employee, id string, req approval.ActRequest) (SoftwareRequestResponse, error)
	DispatchQuestionnaire(ctx context.Context, actor employee.Employee, id string) (SoftwareRequestResponse, error)
	SubmitAnswers(ctx context.Context, actor employee.Employee, id string, req SubmitAnswersRequest) (SoftwareRequestResponse, error)
	Complete(ctx context.Context, actor employee.Employee, id string) (SoftwareRequestResponse, error)

	ListQuestions(ctx context.Context, actor employee.Employee, includeInactive bool) ([]QuestionResponse, error)
	CreateQuestion(ctx context.Context, actor employee.Employee, req QuestionRequest) (QuestionResponse, error)
	UpdateQuestion(ctx context.Context, actor employee.Employee, id string, req QuestionRequest) (QuestionResponse, error)
	DeleteQuestion(ctx context.Context, actor employee.Employee, id string) error
}
