package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/software"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const softwareColumns = `
	s.id, s.employee_id, e.name, s.manager_id, s.it_admin_id, s.asset_id,
	s.software_name, s.software_version, s.duration, s.business_unit_location, s.justification,
	s.status, s.decision_reason, s.decided_at, s.compliance_answered,
	s.questionnaire_sent_at, s.completed_at, s.created_at, s.updated_at`

type softwareRequestRepositoryImpl struct {
	db *database.DB
}

func NewSoftwareRequestRepository(db *database.DB) software.RequestRepository {
	return &softwareRequestRepositoryImpl{db: db}
}

func scanSoftwareRequest(row pgx.Row) (software.SoftwareRequest, error) {
	var s software.SoftwareRequest
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.EmployeeName, &s.ManagerID, &s.ITAdminID, &s.AssetID,
		&s.SoftwareName, &s.SoftwareVersion, &s.Duration, &s.BusinessUnitLocation, &s.Justification,
		&s.Status, &s.DecisionReason, &s.DecidedAt, &s.ComplianceAnswered,
		&s.QuestionnaireSentAt, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *softwareRequestRepositoryImpl) list(ctx context.Context, where string, args ...interface{}) ([]software.SoftwareRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM software_requests s
		INNER JOIN employees e ON e.id = s.employee_id
		WHERE %s
		ORDER BY s.created_at DESC
	`, softwareColumns, where)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []software.SoftwareRequest
	for rows.Next() {
		s, err := scanSoftwareRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Create implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) Create(ctx context.Context, req software.SoftwareRequest) (software.SoftwareRequest, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO software_requests (
			id, employee_id, asset_id, software_name, software_version, duration,
			business_unit_location, justification, status, created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5,
			$6, $7, 'Pending', NOW(), NOW()
		) RETURNING id, status, created_at, updated_at
	`,
		req.EmployeeID, req.AssetID, req.SoftwareName, req.SoftwareVersion, req.Duration,
		req.BusinessUnitLocation, req.Justification,
	).Scan(&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return software.SoftwareRequest{}, fmt.Errorf("create software request: %w", err)
	}
	return req, nil
}

func (r *softwareRequestRepositoryImpl) get(ctx context.Context, id string, suffix string) (software.SoftwareRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM software_requests s
		INNER JOIN employees e ON e.id = s.employee_id
		WHERE s.id = $1 %s
	`, softwareColumns, suffix)
	s, err := scanSoftwareRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return software.SoftwareRequest{}, software.ErrRequestNotFound
		}
		return software.SoftwareRequest{}, err
	}
	return s, nil
}

// GetByID implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) GetByID(ctx context.Context, id string) (software.SoftwareRequest, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (software.SoftwareRequest, error) {
	return r.get(ctx, id, "FOR UPDATE OF s")
}

// ListByEmployee implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string) ([]software.SoftwareRequest, error) {
	return r.list(ctx, "s.employee_id = $1", employeeID)
}

// ListPendingForManager implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) ListPendingForManager(ctx context.Context, managerID string) ([]software.SoftwareRequest, error) {
	return r.list(ctx, `s.status = 'Pending'
		AND EXISTS (SELECT 1 FROM employee_managers m WHERE m.employee_id = s.employee_id AND m.manager_id = $1)`, managerID)
}

// ListPendingWithoutManager implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) ListPendingWithoutManager(ctx context.Context) ([]software.SoftwareRequest, error) {
	return r.list(ctx, `s.status = 'Pending'
		AND NOT EXISTS (SELECT 1 FROM employee_managers m WHERE m.employee_id = s.employee_id)`)
}

// ListByStatus implements software.RequestRepository; nil lists everything.
func (r *softwareRequestRepositoryImpl) ListByStatus(ctx context.Context, status *software.Status) ([]software.SoftwareRequest, error) {
	return r.list(ctx, "($1::text IS NULL OR s.status = $1)", status)
}

// RecordDecision implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) RecordDecision(ctx context.Context, id string, status software.Status, deciderID string, reason *string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE software_requests
		SET status = $2, manager_id = $3, decision_reason = $4, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'
	`, id, status, deciderID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return software.ErrAlreadyDecided
	}
	return nil
}

// MarkQuestionnaireSent implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) MarkQuestionnaireSent(ctx context.Context, id string, itAdminID string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE software_requests
		SET questionnaire_sent_at = NOW(), it_admin_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'Approved'
	`, id, itAdminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return software.ErrNotApproved
	}
	return nil
}

// MarkComplianceAnswered implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) MarkComplianceAnswered(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE software_requests
		SET compliance_answered = TRUE, updated_at = NOW()
		WHERE id = $1 AND compliance_answered = FALSE
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return software.ErrAnswersAlreadyRecorded
	}
	return nil
}

// MarkCompleted implements software.RequestRepository.
func (r *softwareRequestRepositoryImpl) MarkCompleted(ctx context.Context, id string, itAdminID string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE software_requests
		SET status = 'Completed', it_admin_id = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'Approved' AND compliance_answered
	`, id, itAdminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return software.ErrComplianceNotAnswered
	}
	return nil
}

type complianceRepositoryImpl struct {
	db *database.DB
}

func NewComplianceRepository(db *database.DB) software.ComplianceRepository {
	return &complianceRepositoryImpl{db: db}
}

// CreateQuestion implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) CreateQuestion(ctx context.Context, question software.Question) (software.Question, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO compliance_questions (id, text, is_active, sort_order, created_at, updated_at)
		VALUES (uuidv7(), $1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, question.Text, question.IsActive, question.SortOrder).Scan(&question.ID, &question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		return software.Question{}, err
	}
	return question, nil
}

// UpdateQuestion implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) UpdateQuestion(ctx context.Context, question software.Question) (software.Question, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		UPDATE compliance_questions
		SET text = $2, is_active = $3, sort_order = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at, updated_at
	`, question.ID, question.Text, question.IsActive, question.SortOrder).Scan(&question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return software.Question{}, software.ErrQuestionNotFound
		}
		return software.Question{}, err
	}
	return question, nil
}

// GetQuestion implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) GetQuestion(ctx context.Context, id string) (software.Question, error) {
	q := GetQuerier(ctx, r.db)
	var question software.Question
	err := q.QueryRow(ctx, `
		SELECT id, text, is_active, sort_order, created_at, updated_at
		FROM compliance_questions WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&question.ID, &question.Text, &question.IsActive, &question.SortOrder, &question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return software.Question{}, software.ErrQuestionNotFound
		}
		return software.Question{}, err
	}
	return question, nil
}

// DeleteQuestion implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) DeleteQuestion(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE compliance_questions SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return software.ErrQuestionNotFound
	}
	return nil
}

// ListQuestions implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) ListQuestions(ctx context.Context, activeOnly bool) ([]software.Question, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, text, is_active, sort_order, created_at, updated_at
		FROM compliance_questions
		WHERE deleted_at IS NULL AND (NOT $1 OR is_active)
		ORDER BY sort_order, created_at
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []software.Question
	for rows.Next() {
		var question software.Question
		if err := rows.Scan(&question.ID, &question.Text, &question.IsActive, &question.SortOrder, &question.CreatedAt, &question.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, question)
	}
	return list, rows.Err()
}

// InsertAnswers implements software.ComplianceRepository using a single
// round trip per batch.
func (r *complianceRepositoryImpl) InsertAnswers(ctx context.Context, answers []software.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	batch := &pgx.Batch{}
	for _, a := range answers {
		batch.Queue(`
			INSERT INTO compliance_answers (id, request_id, question_id, answer, created_at)
			VALUES (uuidv7(), $1, $2, $3, NOW())
		`, a.RequestID, a.QuestionID, a.Answer)
	}

	sender, ok := q.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		for _, a := range answers {
			if _, err := q.Exec(ctx, `
				INSERT INTO compliance_answers (id, request_id, question_id, answer, created_at)
				VALUES (uuidv7(), $1, $2, $3, NOW())
			`, a.RequestID, a.QuestionID, a.Answer); err != nil {
				return mapAnswerError(err)
			}
		}
		return nil
	}

	results := sender.SendBatch(ctx, batch)
	defer results.Close()
	for range answers {
		if _, err := results.Exec(); err != nil {
			return mapAnswerError(err)
		}
	}
	return nil
}

func mapAnswerError(err error) error {
	if isUniqueViolation(err) {
		return software.ErrAnswersAlreadyRecorded
	}
	return fmt.Errorf("insert compliance answers: %w", err)
}

// ListAnswers implements software.ComplianceRepository.
func (r *complianceRepositoryImpl) ListAnswers(ctx context.Context, requestID string) ([]software.Answer, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT a.id, a.request_id, a.question_id, cq.text, a.answer, a.created_at
		FROM compliance_answers a
		INNER JOIN compliance_questions cq ON cq.id = a.question_id
		WHERE a.request_id = $1
		ORDER BY cq.sort_order, cq.created_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []software.Answer
	for rows.Next() {
		var a software.Answer
		if err := rows.Scan(&a.ID, &a.RequestID, &a.QuestionID, &a.QuestionText, &a.Answer, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
