package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type balanceRepositoryImpl struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) leave.BalanceRepository {
	return &balanceRepositoryImpl{db: db}
}

// balanceColumn maps a category to its counter column.
func balanceColumn(category leave.Category) (string, error) {
	switch category {
	case leave.CategorySick:
		return "sick", nil
	case leave.CategoryCasual:
		return "casual", nil
	case leave.CategoryAnnual:
		return "annual", nil
	case leave.CategoryMaternity:
		return "maternity", nil
	case leave.CategoryPaternity:
		return "paternity", nil
	}
	return "", leave.ErrUnknownCategory
}

// Init implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Init(ctx context.Context, employeeID string) error {
	q := GetQuerier(ctx, r.db)
	_, err := q.Exec(ctx, `
		INSERT INTO leave_balances (employee_id, updated_at) VALUES ($1, NOW())
		ON CONFLICT (employee_id) DO NOTHING
	`, employeeID)
	return err
}

// Get implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Get(ctx context.Context, employeeID string) (leave.Balance, error) {
	q := GetQuerier(ctx, r.db)
	var b leave.Balance
	err := q.QueryRow(ctx, `
		SELECT employee_id, sick, casual, annual, maternity, paternity, updated_at
		FROM leave_balances WHERE employee_id = $1
	`, employeeID).Scan(&b.EmployeeID, &b.Sick, &b.Casual, &b.Annual, &b.Maternity, &b.Paternity, &b.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return leave.Balance{}, leave.ErrBalanceNotFound
		}
		return leave.Balance{}, err
	}
	return b, nil
}

// Debit implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Debit(ctx context.Context, employeeID string, category leave.Category, days int) error {
	column, err := balanceColumn(category)
	if err != nil {
		return err
	}
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE leave_balances
		SET %[1]s = GREATEST(%[1]s - $2, 0), updated_at = NOW()
		WHERE employee_id = $1
	`, column)
	tag, err := q.Exec(ctx, query, employeeID, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}

// Set implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Set(ctx context.Context, b leave.Balance) (leave.Balance, error) {
	q := GetQuerier(ctx, r.db)
	err := q.QueryRow(ctx, `
		INSERT INTO leave_balances (employee_id, sick, casual, annual, maternity, paternity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (employee_id) DO UPDATE
		SET sick = EXCLUDED.sick, casual = EXCLUDED.casual, annual = EXCLUDED.annual,
			maternity = EXCLUDED.maternity, paternity = EXCLUDED.paternity, updated_at = NOW()
		RETURNING updated_at
	`, b.EmployeeID, b.Sick, b.Casual, b.Annual, b.Maternity, b.Paternity).Scan(&b.UpdatedAt)
	if err != nil {
		return leave.Balance{}, err
	}
	return b, nil
}
