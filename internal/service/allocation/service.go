package allocation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type AllocationServiceImpl struct {
	tx database.Transactor
	allocation.AllocationRepository
	projects  project.ProjectRepository
	employees employee.EmployeeRepository
	authority auth.AuthorityResolver
	metrics   *metrics.Metrics

	importConcurrency int
}

type Options struct {
	ImportConcurrency int
}

func NewAllocationService(
	tx database.Transactor,
	allocationRepo allocation.AllocationRepository,
	projectRepo project.ProjectRepository,
	employeeRepo employee.EmployeeRepository,
	authority auth.AuthorityResolver,
	m *metrics.Metrics,
	opts Options,
) allocation.AllocationService {
	if opts.ImportConcurrency <= 0 {
		opts.ImportConcurrency = 4
	}
	return &AllocationServiceImpl{
		tx:                   tx,
		AllocationRepository: allocationRepo,
		projects:             projectRepo,
		employees:            employeeRepo,
		authority:            authority,
		metrics:              m,
		importConcurrency:    opts.ImportConcurrency,
	}
}

// importLine is one data row of the import file with its parsed month cells.
type importLine struct {
	number       int
	employeeCode string
	project      string
	account      string
	cells        []allocation.ImportRow
}

// Import implements allocation.AllocationService. Each line is applied in its
// own transaction; a failed line is reported and the rest of the file goes on.
func (s *AllocationServiceImpl) Import(ctx context.Context, actor employee.Employee, file io.Reader) (allocation.ImportResult, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		return allocation.ImportResult{}, allocation.ErrAllocationManageOnly
	}

	lines, result, err := parseImport(file)
	if err != nil {
		return allocation.ImportResult{}, err
	}
	for range result.Errors {
		s.metrics.ImportRow(metrics.ResultError)
	}

	var mu sync.Mutex
	fail := func(line int, month, message string) {
		mu.Lock()
		result.Errors = append(result.Errors, allocation.RowError{Line: line, Month: month, Message: message})
		mu.Unlock()
		s.metrics.ImportRow(metrics.ResultError)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.importConcurrency)
	for _, line := range lines {
		if len(line.cells) == 0 {
			continue
		}
		line := line
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if month, err := s.applyLine(gCtx, line); err != nil {
				fail(line.number, month, messageOf(err))
				return nil
			}
			mu.Lock()
			result.Succeeded++
			mu.Unlock()
			s.metrics.ImportRow(metrics.ResultOK)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return allocation.ImportResult{}, err
	}

	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Line < result.Errors[j].Line })
	slog.Info("allocation import finished",
		"actor_id", actor.ID,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", len(result.Errors),
	)
	return result, nil
}

// parseImport reads the header and data rows. Cells that do not parse are
// reported as row errors and drop their whole line.
func parseImport(file io.Reader) ([]importLine, allocation.ImportResult, error) {
	result := allocation.ImportResult{Errors: []allocation.RowError{}}

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, result, allocation.ErrInvalidImportFile
	}

	cols := map[string]int{}
	months := map[int]string{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case "employee id", "employee name", "project", "account":
			cols[name] = i
		default:
			if m, ok := allocation.ParseMonthHeader(h); ok {
				months[i] = m
			}
		}
	}
	for _, required := range []string{"employee id", "project", "account"} {
		if _, ok := cols[required]; !ok {
			return nil, result, allocation.ErrInvalidImportFile
		}
	}
	if len(months) == 0 {
		return nil, result, allocation.ErrNoMonthColumns
	}

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var lines []importLine
	for number := 2; ; number++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, allocation.RowError{Line: number, Message: "Malformed CSV row"})
			continue
		}

		line := importLine{
			number:       number,
			employeeCode: field(record, cols["employee id"]),
			project:      field(record, cols["project"]),
			account:      field(record, cols["account"]),
		}
		if line.employeeCode == "" && line.project == "" {
			continue
		}
		result.Processed++

		if line.employeeCode == "" || line.project == "" || line.account == "" {
			result.Errors = append(result.Errors, allocation.RowError{Line: number, Message: "Employee ID, Project and Account are required"})
			continue
		}

		name := ""
		if i, ok := cols["employee name"]; ok {
			name = field(record, i)
		}

		valid := true
		for i, month := range months {
			raw := field(record, i)
			if raw == "" || raw == "-" {
				result.Skipped++
				continue
			}
			days, err := decimal.NewFromString(raw)
			if err != nil || days.IsNegative() || days.GreaterThan(allocation.MaxDaysPerMonth) {
				result.Errors = append(result.Errors, allocation.RowError{
					Line:    number,
					Month:   month,
					Message: fmt.Sprintf("Allocated days %q must be a number between 0 and %s", raw, allocation.MaxDaysPerMonth),
				})
				valid = false
				break
			}
			line.cells = append(line.cells, allocation.ImportRow{
				Line:         number,
				EmployeeCode: line.employeeCode,
				EmployeeName: name,
				Project:      line.project,
				Account:      line.account,
				Month:        month,
				Days:         days,
			})
		}
		if !valid {
			continue
		}
		sort.Slice(line.cells, func(i, j int) bool { return line.cells[i].Month < line.cells[j].Month })
		lines = append(lines, line)
	}
	return lines, result, nil
}

// applyLine applies every month cell of one line atomically. The returned
// month names the cell that failed, if any.
func (s *AllocationServiceImpl) applyLine(ctx context.Context, line importLine) (string, error) {
	var failedMonth string
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		emp, err := s.employees.GetByEmployeeCode(txCtx, line.employeeCode)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return apperror.Newf(apperror.KindValidation, "Unknown employee ID %s", line.employeeCode)
			}
			return err
		}
		if err := s.employees.LockForUpdate(txCtx, emp.ID); err != nil {
			return err
		}
		p, err := s.projects.Ensure(txCtx, line.project, line.account)
		if err != nil {
			return err
		}

		for _, cell := range line.cells {
			failedMonth = cell.Month
			if err := s.setAllocated(txCtx, emp.ID, p.ID, cell.Month, cell.Days); err != nil {
				return err
			}
		}
		failedMonth = ""
		return s.projects.Assign(txCtx, emp.ID, p.ID)
	})
	return failedMonth, err
}

// setAllocated upserts one ledger row, refusing to drop below what is consumed.
func (s *AllocationServiceImpl) setAllocated(ctx context.Context, employeeID, projectID, month string, days decimal.Decimal) error {
	ledger, err := s.LockMonth(ctx, employeeID, month)
	if err != nil {
		return err
	}
	if row, ok := ledger.Find(projectID); ok && days.LessThan(row.ConsumedDays) {
		return allocation.ErrAllocatedBelowUsed
	}
	_, err = s.Upsert(ctx, allocation.Allocation{
		EmployeeID:    employeeID,
		ProjectID:     projectID,
		Month:         month,
		AllocatedDays: days,
	})
	return err
}

// Summary implements allocation.AllocationService.
func (s *AllocationServiceImpl) Summary(ctx context.Context, actor employee.Employee, employeeID, month string) (allocation.SummaryResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	if _, _, err := allocation.MonthRange(month); err != nil {
		return allocation.SummaryResponse{}, apperror.Validation("month must be in YYYY-MM format")
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return allocation.SummaryResponse{}, err
	}
	return s.summary(ctx, employeeID, month)
}

func (s *AllocationServiceImpl) summary(ctx context.Context, employeeID, month string) (allocation.SummaryResponse, error) {
	rows, err := s.ListByEmployeeMonth(ctx, employeeID, month)
	if err != nil {
		return allocation.SummaryResponse{}, err
	}
	resp := allocation.SummaryResponse{
		EmployeeID:     employeeID,
		Month:          month,
		TotalAllocated: decimal.Zero,
		TotalConsumed:  decimal.Zero,
		MonthlyLimit:   allocation.MaxDaysPerMonth,
		Allocations:    allocation.NewAllocationResponses(rows),
	}
	for _, r := range rows {
		resp.TotalAllocated = resp.TotalAllocated.Add(r.AllocatedDays)
		resp.TotalConsumed = resp.TotalConsumed.Add(r.ConsumedDays)
	}
	return resp, nil
}

// ListByProject implements allocation.AllocationService.
func (s *AllocationServiceImpl) ListByProject(ctx context.Context, actor employee.Employee, projectID string, month *string) ([]allocation.AllocationResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR, employee.RoleAccountManager) {
		return nil, allocation.ErrAllocationManageOnly
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.AllocationRepository.ListByProject(ctx, projectID, month)
	if err != nil {
		return nil, err
	}
	return allocation.NewAllocationResponses(rows), nil
}

// Save implements allocation.AllocationService.
func (s *AllocationServiceImpl) Save(ctx context.Context, actor employee.Employee, employeeID, month string, req allocation.SaveRequest) (allocation.SummaryResponse, error) {
	if !auth.HasRole(actor, employee.RoleHR) {
		return allocation.SummaryResponse{}, allocation.ErrAllocationManageOnly
	}
	if _, _, err := allocation.MonthRange(month); err != nil {
		return allocation.SummaryResponse{}, apperror.Validation("month must be in YYYY-MM format")
	}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.employees.LockForUpdate(txCtx, employeeID); err != nil {
			return err
		}
		for _, entry := range req.Allocations {
			if _, err := s.projects.GetByID(txCtx, entry.ProjectID); err != nil {
				return err
			}
			if err := s.setAllocated(txCtx, employeeID, entry.ProjectID, month, entry.Days); err != nil {
				return err
			}
			if err := s.projects.Assign(txCtx, employeeID, entry.ProjectID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return allocation.SummaryResponse{}, err
	}

	slog.Info("allocations saved", "employee_id", employeeID, "month", month, "entries", len(req.Allocations), "actor_id", actor.ID)
	return s.summary(ctx, employeeID, month)
}

// Check implements allocation.AllocationService. It is a read-only probe: the
// same rule the attendance poster enforces, without taking locks.
func (s *AllocationServiceImpl) Check(ctx context.Context, actor employee.Employee, req allocation.CheckRequest) (allocation.CheckResult, error) {
	employeeID := actor.ID
	if req.EmployeeID != nil && *req.EmployeeID != "" {
		employeeID = *req.EmployeeID
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return allocation.CheckResult{}, err
	}

	reserved, err := s.projects.Reserved(ctx)
	if err != nil {
		return allocation.CheckResult{}, err
	}
	p, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return allocation.ResultOf(err), nil
		}
		return allocation.CheckResult{}, err
	}

	month := allocation.MonthOf(req.ParsedDate)
	rows, err := s.ListByEmployeeMonth(ctx, employeeID, month)
	if err != nil {
		return allocation.CheckResult{}, err
	}
	ledger := allocation.MonthLedger{EmployeeID: employeeID, Month: month, Rows: rows}
	return allocation.ResultOf(ledger.Check(p.ID, p.Name, req.Delta, reserved.Exempt(p.ID))), nil
}

// GrantDefaults implements allocation.AllocationService.
func (s *AllocationServiceImpl) GrantDefaults(ctx context.Context, month string) (allocation.GrantResponse, error) {
	if _, _, err := allocation.MonthRange(month); err != nil {
		return allocation.GrantResponse{}, apperror.Validation("month must be in YYYY-MM format")
	}
	reserved, err := s.projects.Reserved(ctx)
	if err != nil {
		return allocation.GrantResponse{}, err
	}

	var affected int64
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		affected, err = s.AllocationRepository.GrantDefaults(txCtx, month, reserved.InHouseID, allocation.DefaultInHouseDays)
		return err
	})
	if err != nil {
		return allocation.GrantResponse{}, fmt.Errorf("failed to grant default allocations: %w", err)
	}
	slog.Info("default allocations granted", "month", month, "affected", affected)
	return allocation.GrantResponse{Month: month, Affected: affected}, nil
}

func (s *AllocationServiceImpl) canView(ctx context.Context, actor employee.Employee, employeeID string) error {
	if actor.ID == employeeID || auth.HasRole(actor, employee.RoleHR, employee.RoleAccountManager) {
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, employeeID)
	if err != nil {
		return err
	}
	return auth.CanViewSubject(a).Err()
}

func messageOf(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
