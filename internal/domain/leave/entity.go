package leave

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
)

type Category string

const (
	CategorySick      Category = "Sick Leave"
	CategoryCasual    Category = "Casual Leave"
	CategoryAnnual    Category = "Annual Leave"
	CategoryMaternity Category = "Maternity Leave"
	CategoryPaternity Category = "Paternity Leave"
)

func AllCategories() []Category {
	return []Category{CategorySick, CategoryCasual, CategoryAnnual, CategoryMaternity, CategoryPaternity}
}

var categoryAliases = map[string]Category{
	"sick":            CategorySick,
	"sick leave":      CategorySick,
	"casual":          CategoryCasual,
	"casual leave":    CategoryCasual,
	"annual":          CategoryAnnual,
	"annual leave":    CategoryAnnual,
	"paid":            CategoryAnnual,
	"paid leave":      CategoryAnnual,
	"annual/paid":     CategoryAnnual,
	"maternity":       CategoryMaternity,
	"maternity leave": CategoryMaternity,
	"paternity":       CategoryPaternity,
	"paternity leave": CategoryPaternity,
}

// NormalizeCategory maps any accepted spelling to the canonical category.
func NormalizeCategory(s string) (Category, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	c, ok := categoryAliases[key]
	return c, ok
}

type OverallStatus string

const (
	StatusPending  OverallStatus = "Pending"
	StatusApproved OverallStatus = "Approved"
	StatusRejected OverallStatus = "Rejected"
)

type LeaveRequest struct {
	ID             string
	EmployeeID     string
	EmployeeName   *string
	Category       Category
	Reason         string
	StartDate      time.Time
	EndDate        time.Time
	WorkingDays    int
	ManagerStatus  approval.SlotStatus
	HRStatus       approval.SlotStatus
	OverallStatus  OverallStatus
	ManagerID      *string
	ManagerReason  *string
	ManagerActedAt *time.Time
	HRID           *string
	HRReason       *string
	HRActedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Balance holds the per-category counters of one employee. Counters never go
// below zero.
type Balance struct {
	EmployeeID string
	Sick       int
	Casual     int
	Annual     int
	Maternity  int
	Paternity  int
	UpdatedAt  time.Time
}

// Get returns the counter for a category.
func (b Balance) Get(c Category) int {
	switch c {
	case CategorySick:
		return b.Sick
	case CategoryCasual:
		return b.Casual
	case CategoryAnnual:
		return b.Annual
	case CategoryMaternity:
		return b.Maternity
	case CategoryPaternity:
		return b.Paternity
	}
	return 0
}

// Debit subtracts days from a category, flooring at zero.
func (b *Balance) Debit(c Category, days int) {
	sub := func(v int) int {
		if v-days < 0 {
			return 0
		}
		return v - days
	}
	switch c {
	case CategorySick:
		b.Sick = sub(b.Sick)
	case CategoryCasual:
		b.Casual = sub(b.Casual)
	case CategoryAnnual:
		b.Annual = sub(b.Annual)
	case CategoryMaternity:
		b.Maternity = sub(b.Maternity)
	case CategoryPaternity:
		b.Paternity = sub(b.Paternity)
	}
}
