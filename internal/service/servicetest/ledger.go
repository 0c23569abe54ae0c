package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/shopspring/decimal"
)

const (
	InHouseID    = "proj-inhouse"
	UnassignedID = "proj-unassigned"
)

type Projects struct {
	mu      sync.Mutex
	byID    map[string]project.Project
	members map[string]map[string]bool // project -> employees
	seq     int
	Missing bool // Reserved reports the reserved rows as absent
}

// NewProjects seeds the two reserved rows.
func NewProjects(extra ...project.Project) *Projects {
	p := &Projects{byID: map[string]project.Project{}, members: map[string]map[string]bool{}}
	p.byID[InHouseID] = project.Project{ID: InHouseID, Name: project.InHouseName, Account: project.InHouseAccount, Status: project.StatusActive}
	p.byID[UnassignedID] = project.Project{ID: UnassignedID, Name: project.UnassignedName, Account: project.UnassignedAccount, Status: project.StatusActive}
	for _, e := range extra {
		if e.Status == "" {
			e.Status = project.StatusActive
		}
		p.byID[e.ID] = e
	}
	return p
}

func (p *Projects) Create(_ context.Context, pr project.Project) (project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.byID {
		if project.Key(e.Name, e.Account) == project.Key(pr.Name, pr.Account) {
			return project.Project{}, project.ErrProjectExists
		}
	}
	p.seq++
	pr.ID = fmt.Sprintf("proj-%03d", p.seq)
	if pr.Status == "" {
		pr.Status = project.StatusActive
	}
	pr.CreatedAt = time.Now()
	p.byID[pr.ID] = pr
	return pr, nil
}

func (p *Projects) GetByID(_ context.Context, id string) (project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.byID[id]
	if !ok {
		return project.Project{}, project.ErrProjectNotFound
	}
	return pr, nil
}

func (p *Projects) GetByNameAccount(_ context.Context, name, account string) (project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.byID {
		if project.Key(e.Name, e.Account) == project.Key(name, account) {
			return e, nil
		}
	}
	return project.Project{}, project.ErrProjectNotFound
}

func (p *Projects) Ensure(ctx context.Context, name, account string) (project.Project, error) {
	if pr, err := p.GetByNameAccount(ctx, name, account); err == nil {
		return pr, nil
	}
	return p.Create(ctx, project.Project{Name: name, Account: account})
}

func (p *Projects) List(_ context.Context, status *project.Status) ([]project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []project.Project
	for _, e := range p.byID {
		if status == nil || e.Status == *status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Projects) ListForEmployee(_ context.Context, employeeID string) ([]project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []project.Project
	for id, m := range p.members {
		if m[employeeID] {
			out = append(out, p.byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Projects) Reserved(context.Context) (project.Reserved, error) {
	if p.Missing {
		return project.Reserved{}, project.ErrReservedMissing
	}
	return project.Reserved{InHouseID: InHouseID, UnassignedID: UnassignedID}, nil
}

func (p *Projects) Assign(_ context.Context, employeeID, projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[projectID] == nil {
		p.members[projectID] = map[string]bool{}
	}
	p.members[projectID][employeeID] = true
	return nil
}

func (p *Projects) IsAssigned(_ context.Context, employeeID, projectID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members[projectID][employeeID], nil
}

func (p *Projects) ReplaceEmployees(_ context.Context, projectID string, employeeIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := map[string]bool{}
	for _, id := range employeeIDs {
		m[id] = true
	}
	p.members[projectID] = m
	return nil
}

func (p *Projects) ListEmployeeIDs(_ context.Context, projectID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id := range p.members[projectID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Allocations is an in-memory allocation ledger keyed by employee, project and month.
type Allocations struct {
	mu        sync.Mutex
	rows      map[string]allocation.Allocation
	employees *Employees
	seq       int
}

func NewAllocations(employees *Employees) *Allocations {
	return &Allocations{rows: map[string]allocation.Allocation{}, employees: employees}
}

func allocKey(employeeID, projectID, month string) string {
	return employeeID + "|" + projectID + "|" + month
}

// Seed inserts a row with the given allocated and consumed days.
func (a *Allocations) Seed(employeeID, projectID, month string, allocated, consumed string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.rows[allocKey(employeeID, projectID, month)] = allocation.Allocation{
		ID:            fmt.Sprintf("alloc-%03d", a.seq),
		EmployeeID:    employeeID,
		ProjectID:     projectID,
		Month:         month,
		AllocatedDays: decimal.RequireFromString(allocated),
		ConsumedDays:  decimal.RequireFromString(consumed),
	}
}

// Row returns the row for (employee, project, month).
func (a *Allocations) Row(employeeID, projectID, month string) (allocation.Allocation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.rows[allocKey(employeeID, projectID, month)]
	return r, ok
}

func (a *Allocations) Upsert(_ context.Context, al allocation.Allocation) (allocation.Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := allocKey(al.EmployeeID, al.ProjectID, al.Month)
	if existing, ok := a.rows[key]; ok {
		existing.AllocatedDays = al.AllocatedDays
		a.rows[key] = existing
		return existing, nil
	}
	a.seq++
	al.ID = fmt.Sprintf("alloc-%03d", a.seq)
	al.ConsumedDays = decimal.Zero
	a.rows[key] = al
	return al, nil
}

func (a *Allocations) filter(match func(allocation.Allocation) bool) []allocation.Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []allocation.Allocation
	for _, r := range a.rows {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Allocations) LockMonth(_ context.Context, employeeID, month string) (allocation.MonthLedger, error) {
	rows := a.filter(func(r allocation.Allocation) bool { return r.EmployeeID == employeeID && r.Month == month })
	return allocation.MonthLedger{EmployeeID: employeeID, Month: month, Rows: rows}, nil
}

func (a *Allocations) ListByEmployeeMonth(_ context.Context, employeeID, month string) ([]allocation.Allocation, error) {
	return a.filter(func(r allocation.Allocation) bool { return r.EmployeeID == employeeID && r.Month == month }), nil
}

func (a *Allocations) ListByProject(_ context.Context, projectID string, month *string) ([]allocation.Allocation, error) {
	return a.filter(func(r allocation.Allocation) bool {
		return r.ProjectID == projectID && (month == nil || r.Month == *month)
	}), nil
}

func (a *Allocations) ListByMonth(_ context.Context, month string) ([]allocation.Allocation, error) {
	return a.filter(func(r allocation.Allocation) bool { return r.Month == month }), nil
}

func (a *Allocations) AddConsumed(_ context.Context, id string, delta decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, r := range a.rows {
		if r.ID == id {
			r.ConsumedDays = decimal.Max(r.ConsumedDays.Add(delta), decimal.Zero)
			a.rows[k] = r
			return nil
		}
	}
	return allocation.ErrAllocationNotFound
}

func (a *Allocations) GrantDefaults(ctx context.Context, month, projectID string, days decimal.Decimal) (int64, error) {
	ids, err := a.employees.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	var affected int64
	for _, id := range ids {
		existing, ok := a.Row(id, projectID, month)
		if ok && existing.AllocatedDays.Equal(days) {
			continue
		}
		if _, err := a.Upsert(ctx, allocation.Allocation{EmployeeID: id, ProjectID: projectID, Month: month, AllocatedDays: days}); err != nil {
			return 0, err
		}
		affected++
	}
	return affected, nil
}
