package postgresql

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
)

type holidayRepositoryImpl struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) calendar.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// ListDates implements calendar.HolidayRepository.
func (r *holidayRepositoryImpl) ListDates(ctx context.Context, locationID string, start, end time.Time) ([]time.Time, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT date FROM holidays
		WHERE location_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, locationID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
