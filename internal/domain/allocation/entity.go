package allocation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const MonthLayout = "2006-01"

// MaxDaysPerMonth caps the days an employee can consume across all projects in a month.
var MaxDaysPerMonth = decimal.NewFromInt(20)

// DefaultInHouseDays is the monthly grant against the In-House project.
var DefaultInHouseDays = decimal.NewFromInt(20)

type Allocation struct {
	ID            string
	EmployeeID    string
	EmployeeCode  string
	EmployeeName  string
	ProjectID     string
	ProjectName   string
	Account       string
	Month         string
	AllocatedDays decimal.Decimal
	ConsumedDays  decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining is allocated minus consumed.
func (a Allocation) Remaining() decimal.Decimal {
	return a.AllocatedDays.Sub(a.ConsumedDays)
}

// MonthOf formats a date as YYYY-MM.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthRange returns the first and last day of a YYYY-MM month.
func MonthRange(month string) (time.Time, time.Time, error) {
	first, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return first, first.AddDate(0, 1, -1), nil
}

var monthHeaderLayouts = []string{"2006-01", "Jan-2006", "Jan 2006", "January 2006", "January-2006", "01/2006"}

// ParseMonthHeader reads an import column header such as "2025-11", "Nov-2025"
// or "November 2025" and returns the YYYY-MM month.
func ParseMonthHeader(h string) (string, bool) {
	h = strings.TrimSpace(h)
	for _, layout := range monthHeaderLayouts {
		if t, err := time.Parse(layout, h); err == nil {
			return MonthOf(t), true
		}
	}
	return "", false
}

// HumanMonth renders YYYY-MM as "November 2025".
func HumanMonth(month string) string {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}
