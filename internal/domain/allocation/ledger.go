package allocation

import (
	"errors"

	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// MonthLedger is an employee's allocation rows for one month, read under lock.
type MonthLedger struct {
	EmployeeID string
	Month      string
	Rows       []Allocation
}

// Find returns the row for a project.
func (l MonthLedger) Find(projectID string) (Allocation, bool) {
	for _, a := range l.Rows {
		if a.ProjectID == projectID {
			return a, true
		}
	}
	return Allocation{}, false
}

// TotalConsumed sums consumed days over every project in the month.
func (l MonthLedger) TotalConsumed() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Rows {
		total = total.Add(a.ConsumedDays)
	}
	return total
}

// Check validates consuming delta days on a project. Exempt projects (In-House
// and Unassigned) always pass. projectName is only used in messages.
func (l MonthLedger) Check(projectID, projectName string, delta decimal.Decimal, exempt bool) error {
	if exempt {
		return nil
	}
	row, ok := l.Find(projectID)
	if !ok {
		return apperror.Newf(apperror.KindPrecondition,
			"No allocation for %s on project %s", HumanMonth(l.Month), projectName)
	}
	if row.ConsumedDays.Add(delta).GreaterThan(row.AllocatedDays) {
		return apperror.Newf(apperror.KindPrecondition,
			"Allocation exceeded for %s on project %s (%s of %s days remaining)",
			HumanMonth(l.Month), projectName, row.Remaining().StringFixed(2), row.AllocatedDays.StringFixed(2))
	}
	if l.TotalConsumed().Add(delta).GreaterThan(MaxDaysPerMonth) {
		return apperror.Newf(apperror.KindPrecondition,
			"Monthly limit of %s days exceeded for %s", MaxDaysPerMonth.String(), HumanMonth(l.Month))
	}
	return nil
}

// CheckResult is returned by the validation probe.
type CheckResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func ResultOf(err error) CheckResult {
	if err == nil {
		return CheckResult{OK: true}
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return CheckResult{Reason: appErr.Message}
	}
	return CheckResult{Reason: err.Error()}
}
