package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/expense"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const expenseColumns = `
	x.id, x.code, x.employee_id, e.name, x.category, x.amount, x.currency, x.description,
	x.expense_date, x.tax_applicable, x.tax_percentage, x.final_amount, x.status,
	x.deleted_at, x.created_at, x.updated_at`

type expenseRepositoryImpl struct {
	db *database.DB
}

func NewExpenseRepository(db *database.DB) expense.ExpenseRepository {
	return &expenseRepositoryImpl{db: db}
}

func scanExpense(row pgx.Row) (expense.ExpenseRequest, error) {
	var x expense.ExpenseRequest
	err := row.Scan(
		&x.ID,
		&x.Code,
		&x.EmployeeID,
		&x.EmployeeName,
		&x.Category,
		&x.Amount,
		&x.Currency,
		&x.Description,
		&x.ExpenseDate,
		&x.TaxApplicable,
		&x.TaxPercentage,
		&x.FinalAmount,
		&x.Status,
		&x.DeletedAt,
		&x.CreatedAt,
		&x.UpdatedAt,
	)
	return x, err
}

func collectExpenses(rows pgx.Rows) ([]expense.ExpenseRequest, error) {
	defer rows.Close()
	var list []expense.ExpenseRequest
	for rows.Next() {
		x, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, x)
	}
	return list, rows.Err()
}

// NextCode implements expense.ExpenseRepository. The per-day counter row is
// upserted so concurrent submissions serialise on it.
func (r *expenseRepositoryImpl) NextCode(ctx context.Context, day time.Time) (string, error) {
	q := GetQuerier(ctx, r.db)
	var seq int
	err := q.QueryRow(ctx, `
		INSERT INTO expense_code_counters (day, last) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last = expense_code_counters.last + 1
		RETURNING last
	`, day).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next expense code: %w", err)
	}
	return fmt.Sprintf("EXP-%s-%04d", day.Format("20060102"), seq), nil
}

// Create implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) Create(ctx context.Context, req expense.ExpenseRequest) (expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO expense_requests (
			id, code, employee_id, category, amount, currency, description,
			expense_date, tax_applicable, tax_percentage, final_amount, status,
			created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			NOW(), NOW()
		) RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		req.Code, req.EmployeeID, req.Category, req.Amount, req.Currency, req.Description,
		req.ExpenseDate, req.TaxApplicable, req.TaxPercentage, req.FinalAmount, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return expense.ExpenseRequest{}, fmt.Errorf("create expense request: %w", err)
	}
	return req, nil
}

func (r *expenseRepositoryImpl) get(ctx context.Context, id string, forUpdate bool) (expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		WHERE x.id = $1 AND x.deleted_at IS NULL
	`, expenseColumns)
	if forUpdate {
		query += " FOR UPDATE OF x"
	}
	x, err := scanExpense(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return expense.ExpenseRequest{}, expense.ErrExpenseNotFound
		}
		return expense.ExpenseRequest{}, err
	}
	return x, nil
}

// GetByID implements expense.ExpenseRepository. Archived requests stay readable.
func (r *expenseRepositoryImpl) GetByID(ctx context.Context, id string) (expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		WHERE x.id = $1
	`, expenseColumns)
	x, err := scanExpense(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return expense.ExpenseRequest{}, expense.ErrExpenseNotFound
		}
		return expense.ExpenseRequest{}, err
	}
	return x, nil
}

// GetByIDForUpdate implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (expense.ExpenseRequest, error) {
	return r.get(ctx, id, true)
}

// ListByEmployee implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string, filter expense.ExpenseFilter) ([]expense.ExpenseRequest, int64, error) {
	q := GetQuerier(ctx, r.db)
	filter.Normalize()

	where := `x.employee_id = $1 AND ($2::text IS NULL OR x.status = $2) AND ($3 OR x.deleted_at IS NULL)`
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		WHERE %s
		ORDER BY x.created_at DESC
		LIMIT $4 OFFSET $5
	`, expenseColumns, where)
	rows, err := q.Query(ctx, query, employeeID, filter.Status, filter.IncludeArchived, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectExpenses(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM expense_requests x WHERE %s`, where)
	if err := q.QueryRow(ctx, countQuery, employeeID, filter.Status, filter.IncludeArchived).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListPendingForManager implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListPendingForManager(ctx context.Context, managerID string) ([]expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		INNER JOIN employee_managers m ON m.employee_id = x.employee_id AND m.manager_id = $1
		WHERE x.status = $2 AND x.deleted_at IS NULL
		ORDER BY x.created_at ASC
	`, expenseColumns)
	rows, err := q.Query(ctx, query, managerID, expense.StatusPendingManager)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// ListPendingForHR implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListPendingForHR(ctx context.Context, hrID string, allEmployees bool) ([]expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		WHERE x.status = $2 AND x.deleted_at IS NULL
		  AND ($3 OR EXISTS (SELECT 1 FROM employee_hrs h WHERE h.employee_id = x.employee_id AND h.hr_id = $1))
		ORDER BY x.created_at ASC
	`, expenseColumns)
	rows, err := q.Query(ctx, query, hrID, expense.StatusPendingHR, allEmployees)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// ListByStatus implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListByStatus(ctx context.Context, status expense.Status) ([]expense.ExpenseRequest, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expense_requests x
		INNER JOIN employees e ON e.id = x.employee_id
		WHERE x.status = $1 AND x.deleted_at IS NULL
		ORDER BY x.created_at ASC
	`, expenseColumns)
	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// UpdateStatus moves a request from one status to another; a request no
// longer in from has been acted on concurrently.
func (r *expenseRepositoryImpl) UpdateStatus(ctx context.Context, id string, from, to expense.Status) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE expense_requests SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return expense.ErrStageAlreadyActed
	}
	return nil
}

// Delete implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM expense_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

// Archive implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) Archive(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE expense_requests SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

// StatisticsByEmployee implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) StatisticsByEmployee(ctx context.Context, employeeID string) ([]expense.StatusStat, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(final_amount), 0)
		FROM expense_requests
		WHERE employee_id = $1 AND deleted_at IS NULL
		GROUP BY status
		ORDER BY status
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []expense.StatusStat
	for rows.Next() {
		var s expense.StatusStat
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// AddAttachment implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) AddAttachment(ctx context.Context, a expense.Attachment) (expense.Attachment, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO expense_attachments (id, request_id, file_name, stored_path, content_type, size, uploaded_at)
		VALUES (uuidv7(), $1, $2, $3, $4, $5, NOW())
		RETURNING id, uploaded_at
	`, a.RequestID, a.FileName, a.StoredPath, a.ContentType, a.Size).Scan(&a.ID, &a.UploadedAt)
	if err != nil {
		return expense.Attachment{}, fmt.Errorf("add attachment: %w", err)
	}
	return a, nil
}

// ListAttachments implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListAttachments(ctx context.Context, requestID string) ([]expense.Attachment, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, request_id, file_name, stored_path, content_type, size, uploaded_at
		FROM expense_attachments WHERE request_id = $1 ORDER BY uploaded_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []expense.Attachment
	for rows.Next() {
		var a expense.Attachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.FileName, &a.StoredPath, &a.ContentType, &a.Size, &a.UploadedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetAttachment implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) GetAttachment(ctx context.Context, requestID, attachmentID string) (expense.Attachment, error) {
	q := GetQuerier(ctx, r.db)
	var a expense.Attachment
	err := q.QueryRow(ctx, `
		SELECT id, request_id, file_name, stored_path, content_type, size, uploaded_at
		FROM expense_attachments WHERE request_id = $1 AND id = $2
	`, requestID, attachmentID).Scan(&a.ID, &a.RequestID, &a.FileName, &a.StoredPath, &a.ContentType, &a.Size, &a.UploadedAt)
	if err != nil {
		if isNoRows(err) {
			return expense.Attachment{}, expense.ErrAttachmentNotFound
		}
		return expense.Attachment{}, err
	}
	return a, nil
}

// AppendHistory implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) AppendHistory(ctx context.Context, h expense.History) (expense.History, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO expense_history (id, request_id, actor_id, actor_role, action, reason, from_status, to_status, created_at)
		VALUES (uuidv7(), $1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, h.RequestID, h.ActorID, h.ActorRole, h.Action, h.Reason, h.FromStatus, h.ToStatus).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return expense.History{}, fmt.Errorf("append expense history: %w", err)
	}
	return h, nil
}

// ListHistory implements expense.ExpenseRepository.
func (r *expenseRepositoryImpl) ListHistory(ctx context.Context, requestID string) ([]expense.History, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT h.id, h.request_id, h.actor_id, e.name, h.actor_role, h.action, h.reason,
			h.from_status, h.to_status, h.created_at
		FROM expense_history h
		INNER JOIN employees e ON e.id = h.actor_id
		WHERE h.request_id = $1
		ORDER BY h.created_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []expense.History
	for rows.Next() {
		var h expense.History
		if err := rows.Scan(&h.ID, &h.RequestID, &h.ActorID, &h.ActorName, &h.ActorRole, &h.Action, &h.Reason,
			&h.FromStatus, &h.ToStatus, &h.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}
