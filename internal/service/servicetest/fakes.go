// Package servicetest holds in-memory repository fakes shared by the service
// tests. Nothing outside _test.go files imports it.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
)

// Tx runs fn directly; the fakes are not transactional.
type Tx struct{}

func (Tx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Employees struct {
	mu   sync.Mutex
	byID map[string]employee.Employee
	seq  int
}

func NewEmployees(emps ...employee.Employee) *Employees {
	f := &Employees{byID: make(map[string]employee.Employee)}
	for _, e := range emps {
		f.Put(e)
	}
	return f
}

// Put stores emp as is, defaulting it to active.
func (f *Employees) Put(emp employee.Employee) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if emp.LoginStatus == "" {
		emp.LoginStatus = employee.LoginStatusActive
	}
	f.byID[emp.ID] = emp
}

func (f *Employees) find(match func(employee.Employee) bool) (employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if match(e) {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (f *Employees) Create(_ context.Context, emp employee.Employee) (employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if strings.EqualFold(e.EmployeeCode, emp.EmployeeCode) {
			return employee.Employee{}, employee.ErrEmployeeCodeExists
		}
	}
	f.seq++
	emp.ID = fmt.Sprintf("emp-%03d", f.seq)
	emp.CreatedAt = time.Now()
	f.byID[emp.ID] = emp
	return emp, nil
}

func (f *Employees) GetByID(_ context.Context, id string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return e.ID == id })
}

func (f *Employees) GetByEmail(_ context.Context, email string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return strings.EqualFold(e.Email, email) })
}

func (f *Employees) GetByCompanyEmail(_ context.Context, email string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool {
		return e.CompanyEmail != nil && strings.EqualFold(*e.CompanyEmail, email)
	})
}

func (f *Employees) GetByExternalSubject(_ context.Context, subject string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return e.ExternalSubject != nil && *e.ExternalSubject == subject })
}

func (f *Employees) GetByEmployeeCode(_ context.Context, code string) (employee.Employee, error) {
	return f.find(func(e employee.Employee) bool { return strings.EqualFold(e.EmployeeCode, strings.TrimSpace(code)) })
}

func (f *Employees) UpdateExternalProfile(_ context.Context, emp employee.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[emp.ID]; !ok {
		return employee.ErrEmployeeNotFound
	}
	f.byID[emp.ID] = emp
	return nil
}

func (f *Employees) List(_ context.Context, filter employee.EmployeeFilter) ([]employee.Employee, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []employee.Employee
	for _, e := range f.byID {
		if filter.Role != nil && e.Role != *filter.Role {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(*filter.Search)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := (filter.Page - 1) * filter.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *Employees) ListIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *Employees) LockForUpdate(ctx context.Context, id string) error {
	_, err := f.GetByID(ctx, id)
	return err
}

// Registry keeps assignments in maps keyed by employee id.
type Registry struct {
	mu        sync.Mutex
	employees *Employees
	managers  map[string][]string
	hrs       map[string][]string
}

func NewRegistry(employees *Employees) *Registry {
	return &Registry{employees: employees, managers: map[string][]string{}, hrs: map[string][]string{}}
}

// Assign is a test helper that sets a relation without validation.
func (r *Registry) Assign(relation assignment.Relation, employeeID string, memberIDs ...string) {
	_ = r.Replace(context.Background(), relation, employeeID, memberIDs)
}

func (r *Registry) members(ctx context.Context, ids []string) ([]assignment.Member, error) {
	out := make([]assignment.Member, 0, len(ids))
	for _, id := range ids {
		e, err := r.employees.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment.Member{
			EmployeeID:   e.ID,
			Name:         e.Name,
			Email:        e.Email,
			CompanyEmail: e.CompanyEmail,
			Role:         e.Role,
		})
	}
	return out, nil
}

func (r *Registry) snapshot(m map[string][]string, key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), m[key]...)
}

func (r *Registry) reverse(m map[string][]string, memberID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for emp, members := range m {
		for _, id := range members {
			if id == memberID {
				ids = append(ids, emp)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) ManagersOf(ctx context.Context, employeeID string) ([]assignment.Member, error) {
	return r.members(ctx, r.snapshot(r.managers, employeeID))
}

func (r *Registry) HRsOf(ctx context.Context, employeeID string) ([]assignment.Member, error) {
	return r.members(ctx, r.snapshot(r.hrs, employeeID))
}

func (r *Registry) EmployeesManagedBy(ctx context.Context, managerID string) ([]assignment.Member, error) {
	return r.members(ctx, r.reverse(r.managers, managerID))
}

func (r *Registry) EmployeesHRdBy(ctx context.Context, hrID string) ([]assignment.Member, error) {
	return r.members(ctx, r.reverse(r.hrs, hrID))
}

func (r *Registry) IsManagerOf(_ context.Context, managerID, employeeID string) (bool, error) {
	for _, id := range r.snapshot(r.managers, employeeID) {
		if id == managerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) IsHROf(_ context.Context, hrID, employeeID string) (bool, error) {
	for _, id := range r.snapshot(r.hrs, employeeID) {
		if id == hrID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) Replace(_ context.Context, relation assignment.Relation, employeeID string, memberIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]string(nil), memberIDs...)
	if relation == assignment.RelationManager {
		r.managers[employeeID] = ids
	} else {
		r.hrs[employeeID] = ids
	}
	return nil
}

type Balances struct {
	mu   sync.Mutex
	rows map[string]leave.Balance
}

func NewBalances(rows ...leave.Balance) *Balances {
	f := &Balances{rows: make(map[string]leave.Balance)}
	for _, b := range rows {
		f.rows[b.EmployeeID] = b
	}
	return f
}

func (f *Balances) Init(_ context.Context, employeeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[employeeID]; !ok {
		f.rows[employeeID] = leave.Balance{EmployeeID: employeeID}
	}
	return nil
}

func (f *Balances) Get(_ context.Context, employeeID string) (leave.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[employeeID]
	if !ok {
		return leave.Balance{}, leave.ErrBalanceNotFound
	}
	return b, nil
}

func (f *Balances) Debit(_ context.Context, employeeID string, category leave.Category, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[employeeID]
	if !ok {
		return leave.ErrBalanceNotFound
	}
	b.Debit(category, days)
	f.rows[employeeID] = b
	return nil
}

func (f *Balances) Set(_ context.Context, balance leave.Balance) (leave.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance.UpdatedAt = time.Now()
	f.rows[balance.EmployeeID] = balance
	return balance, nil
}

// Holidays maps a location id to its holiday dates.
type Holidays map[string][]time.Time

func (h Holidays) ListDates(_ context.Context, locationID string, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range h[locationID] {
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Notifier records every event it is handed.
type Notifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *Notifier) Notify(_ context.Context, event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *Notifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

// Of returns the recorded events of one type.
func (n *Notifier) Of(t notification.NotificationType) []notification.Event {
	var out []notification.Event
	for _, e := range n.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// RecipientIDs lists the employee ids an event was addressed to.
func RecipientIDs(e notification.Event) []string {
	ids := make([]string, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		ids = append(ids, r.EmployeeID)
	}
	sort.Strings(ids)
	return ids
}

// Date parses a YYYY-MM-DD literal and panics on bad input.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
