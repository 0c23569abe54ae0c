package software

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
)

type SubmitSoftwareRequest struct {
	SoftwareName         string  `json:"software_name"`
	SoftwareVersion      *string `json:"software_version,omitempty"`
	Duration             *string `json:"duration,omitempty"`
	AssetID              *string `json:"asset_id,omitempty"`
	ITAdminID            *string `json:"it_admin_id,omitempty"`
	BusinessUnitLocation *string `json:"business_unit_location,omitempty"`
	Justification        *string `json:"justification,omitempty"`
}

func (r *SubmitSoftwareRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.SoftwareName) {
		errs = append(errs, validator.ValidationError{Field: "software_name", Message: "software_name is required"})
	} else if len(r.SoftwareName) > 255 {
		errs = append(errs, validator.ValidationError{Field: "software_name", Message: "software_name must not exceed 255 characters"})
	}
	if r.Justification != nil && len(*r.Justification) > 2000 {
		errs = append(errs, validator.ValidationError{Field: "justification", Message: "justification must not exceed 2000 characters"})
	}
	if len(errs) > 0 {
		return errs
	}
	r.SoftwareName = strings.TrimSpace(r.SoftwareName)
	return nil
}

type AnswerInput struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers"`
}

func (r *SubmitAnswersRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.Answers) == 0 {
		errs = append(errs, validator.ValidationError{Field: "answers", Message: "answers are required"})
	}
	seen := make(map[string]bool)
	for _, a := range r.Answers {
		if validator.IsEmpty(a.QuestionID) {
			errs = append(errs, validator.ValidationError{Field: "answers", Message: "question_id is required for every answer"})
			break
		}
		if seen[a.QuestionID] {
			errs = append(errs, validator.ValidationError{Field: "answers", Message: "each question may be answered once"})
			break
		}
		seen[a.QuestionID] = true
		if validator.IsEmpty(a.Answer) {
			errs = append(errs, validator.ValidationError{Field: "answers", Message: "answers must not be empty"})
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type QuestionRequest struct {
	Text      string `json:"question"`
	IsActive  *bool  `json:"is_active,omitempty"`
	SortOrder int    `json:"sort_order"`
}

func (r *QuestionRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.Text) {
		errs = append(errs, validator.ValidationError{Field: "question", Message: "question is required"})
	} else if len(r.Text) > 1000 {
		errs = append(errs, validator.ValidationError{Field: "question", Message: "question must not exceed 1000 characters"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type QuestionResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"question"`
	IsActive  bool      `json:"is_active"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func NewQuestionResponse(q Question) QuestionResponse {
	return QuestionResponse{ID: q.ID, Text: q.Text, IsActive: q.IsActive, SortOrder: q.SortOrder, CreatedAt: q.CreatedAt}
}

type AnswerResponse struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type SoftwareRequestResponse struct {
	ID                   string           `json:"id"`
	EmployeeID           string           `json:"employee_id"`
	EmployeeName         string           `json:"employee_name,omitempty"`
	ManagerID            *string          `json:"manager_id,omitempty"`
	ITAdminID            *string          `json:"it_admin_id,omitempty"`
	AssetID              *string          `json:"asset_id,omitempty"`
	SoftwareName         string           `json:"software_name"`
	SoftwareVersion      *string          `json:"software_version,omitempty"`
	Duration             *string          `json:"duration,omitempty"`
	BusinessUnitLocation *string          `json:"business_unit_location,omitempty"`
	Justification        *string          `json:"justification,omitempty"`
	Status               string           `json:"status"`
	DecisionReason       *string          `json:"decision_reason,omitempty"`
	ComplianceAnswered   bool             `json:"compliance_answered"`
	QuestionnaireSentAt  *time.Time       `json:"questionnaire_sent_at,omitempty"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	Answers              []AnswerResponse `json:"answers,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func NewSoftwareRequestResponse(r SoftwareRequest, answers []Answer) SoftwareRequestResponse {
	resp := SoftwareRequestResponse{
		ID:                   r.ID,
		EmployeeID:           r.EmployeeID,
		ManagerID:            r.ManagerID,
		ITAdminID:            r.ITAdminID,
		AssetID:              r.AssetID,
		SoftwareName:         r.SoftwareName,
		SoftwareVersion:      r.SoftwareVersion,
		Duration:             r.Duration,
		BusinessUnitLocation: r.BusinessUnitLocation,
		Justification:        r.Justification,
		Status:               string(r.Status),
		DecisionReason:       r.DecisionReason,
		ComplianceAnswered:   r.ComplianceAnswered,
		QuestionnaireSentAt:  r.QuestionnaireSentAt,
		CompletedAt:          r.CompletedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.EmployeeName != nil {
		resp.EmployeeName = *r.EmployeeName
	}
	for _, a := range answers {
		resp.Answers = append(resp.Answers, AnswerResponse{QuestionID: a.QuestionID, Question: a.QuestionText, Answer: a.Answer})
	}
	return resp
}

func NewSoftwareRequestResponses(list []SoftwareRequest) []SoftwareRequestResponse {
	out := make([]SoftwareRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, NewSoftwareRequestResponse(r, nil))
	}
	return out
}
