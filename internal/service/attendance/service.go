package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/project"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	allocations allocation.AllocationRepository
	projects    project.ProjectRepository
	employees   employee.EmployeeRepository
	authority   auth.AuthorityResolver
	metrics     *metrics.Metrics
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	allocationRepo allocation.AllocationRepository,
	projectRepo project.ProjectRepository,
	employeeRepo employee.EmployeeRepository,
	authority auth.AuthorityResolver,
	m *metrics.Metrics,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		allocations:          allocationRepo,
		projects:             projectRepo,
		employees:            employeeRepo,
		authority:            authority,
		metrics:              m,
	}
}

// Post implements attendance.AttendanceService. The attendance row, its
// entries and the allocation consumption are written in one transaction; any
// failed check rolls back the whole day.
func (s *AttendanceServiceImpl) Post(ctx context.Context, actor employee.Employee, req attendance.PostRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.AttendancePost(metrics.ResultRejected)
		return attendance.AttendanceResponse{}, err
	}

	date := calendar.Civil(req.ParsedDate)
	entries := req.Entries()
	month := allocation.MonthOf(date)

	var saved attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Employee lock first, then the month's allocation rows: every writer of
		// this ledger takes them in that order.
		if err := s.employees.LockForUpdate(txCtx, actor.ID); err != nil {
			return err
		}
		ledger, err := s.allocations.LockMonth(txCtx, actor.ID, month)
		if err != nil {
			return err
		}
		existing, err := s.GetByEmployeeDate(txCtx, actor.ID, date)
		if err != nil {
			return err
		}

		var previous []attendance.Entry
		if existing != nil {
			previous = existing.Entries
		}
		oldDays := attendance.DaysByProject(previous)
		newDays := attendance.DaysByProject(entries)

		if err := s.checkProjects(txCtx, actor.ID, ledger, oldDays, newDays, entries); err != nil {
			return err
		}
		if err := s.checkMonthlyLimit(txCtx, actor.ID, month, date, newDays); err != nil {
			return err
		}

		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.Hours)
		}
		saved, err = s.Upsert(txCtx, attendance.Attendance{
			EmployeeID: actor.ID,
			Date:       date,
			DayOfWeek:  date.Weekday().String(),
			Action:     req.ParsedAction,
			TotalHours: total,
		})
		if err != nil {
			return err
		}
		if err := s.ReplaceEntries(txCtx, saved.ID, entries); err != nil {
			return err
		}
		return s.consume(txCtx, ledger, oldDays, newDays)
	})
	if err != nil {
		result := metrics.ResultError
		if isRejection(err) {
			result = metrics.ResultRejected
		}
		s.metrics.AttendancePost(result)
		return attendance.AttendanceResponse{}, err
	}
	s.metrics.AttendancePost(metrics.ResultOK)

	slog.Info("attendance posted",
		"employee_id", actor.ID,
		"date", date.Format(calendar.DateLayout),
		"action", req.ParsedAction,
		"total_hours", saved.TotalHours.String(),
	)

	stored, err := s.GetByEmployeeDate(ctx, actor.ID, date)
	if err != nil || stored == nil {
		saved.Entries = entries
		return attendance.NewAttendanceResponse(saved), nil
	}
	return attendance.NewAttendanceResponse(*stored), nil
}

// checkProjects validates every project touched by the posting. Only the
// increase over what this date already consumed is checked against the ledger.
func (s *AttendanceServiceImpl) checkProjects(ctx context.Context, employeeID string, ledger allocation.MonthLedger, oldDays, newDays map[string]decimal.Decimal, entries []attendance.Entry) error {
	reserved, err := s.projects.Reserved(ctx)
	if err != nil {
		return err
	}

	for _, projectID := range sortedKeys(newDays) {
		p, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		exempt := reserved.Exempt(projectID)
		if !exempt {
			assigned, err := s.projects.IsAssigned(ctx, employeeID, projectID)
			if err != nil {
				return err
			}
			if !assigned {
				return apperror.Newf(apperror.KindPrecondition, "You are not assigned to project %s", p.Name)
			}
		}
		delta := newDays[projectID].Sub(oldDays[projectID])
		if !delta.IsPositive() {
			continue
		}
		if err := ledger.Check(projectID, p.Name, delta, exempt); err != nil {
			return err
		}
	}
	for i := range entries {
		if p, err := s.projects.GetByID(ctx, entries[i].ProjectID); err == nil {
			entries[i].ProjectName = &p.Name
		}
	}
	return nil
}

// checkMonthlyLimit caps the days posted in a month over every project,
// reserved ones included.
func (s *AttendanceServiceImpl) checkMonthlyLimit(ctx context.Context, employeeID, month string, date time.Time, newDays map[string]decimal.Decimal) error {
	first, last, err := allocation.MonthRange(month)
	if err != nil {
		return err
	}
	others, err := s.SumDaysInRange(ctx, employeeID, first, last, date)
	if err != nil {
		return err
	}
	posting := decimal.Zero
	for _, d := range newDays {
		posting = posting.Add(d)
	}
	if others.Add(posting).GreaterThan(allocation.MaxDaysPerMonth) {
		return attendance.ErrMonthlyDaysLimit
	}
	return nil
}

// consume applies the per-project difference to the allocation rows. Projects
// without a row (Unassigned) have nothing to consume.
func (s *AttendanceServiceImpl) consume(ctx context.Context, ledger allocation.MonthLedger, oldDays, newDays map[string]decimal.Decimal) error {
	touched := make(map[string]decimal.Decimal, len(oldDays)+len(newDays))
	for id := range oldDays {
		touched[id] = decimal.Zero
	}
	for id := range newDays {
		touched[id] = decimal.Zero
	}
	for _, projectID := range sortedKeys(touched) {
		delta := newDays[projectID].Sub(oldDays[projectID])
		if delta.IsZero() {
			continue
		}
		row, ok := ledger.Find(projectID)
		if !ok {
			continue
		}
		if err := s.allocations.AddConsumed(ctx, row.ID, delta); err != nil {
			return fmt.Errorf("failed to consume allocation: %w", err)
		}
	}
	return nil
}

// PostBulk implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PostBulk(ctx context.Context, actor employee.Employee, req attendance.BulkPostRequest) (attendance.BulkPostResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.BulkPostResponse{}, err
	}

	resp := attendance.BulkPostResponse{Results: make([]attendance.DayResult, 0, len(req.Days))}
	for _, day := range req.Days {
		result := attendance.DayResult{Date: day.Date}
		posted, err := s.Post(ctx, actor, day)
		if err != nil {
			if !isRejection(err) {
				slog.Error("attendance bulk post failed", "employee_id", actor.ID, "date", day.Date, "error", err)
			}
			result.Error = messageOf(err)
			resp.Failed++
		} else {
			result.Success = true
			result.Attendance = &posted
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

// Weekly implements attendance.AttendanceService. weekStart must be a Monday;
// days without attendance are returned empty.
func (s *AttendanceServiceImpl) Weekly(ctx context.Context, actor employee.Employee, employeeID string, weekStart string) (attendance.WeeklyResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	start, err := time.Parse(calendar.DateLayout, weekStart)
	if err != nil || start.Weekday() != time.Monday {
		return attendance.WeeklyResponse{}, apperror.Validation("week_start must be a Monday in YYYY-MM-DD format")
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return attendance.WeeklyResponse{}, err
	}

	end := start.AddDate(0, 0, 6)
	list, err := s.ListRange(ctx, employeeID, start, end)
	if err != nil {
		return attendance.WeeklyResponse{}, err
	}
	byDate := make(map[string]attendance.Attendance, len(list))
	for _, a := range list {
		byDate[a.Date.Format(calendar.DateLayout)] = a
	}

	resp := attendance.WeeklyResponse{
		EmployeeID: employeeID,
		WeekStart:  start.Format(calendar.DateLayout),
		WeekEnd:    end.Format(calendar.DateLayout),
		TotalHours: decimal.Zero,
		TotalDays:  decimal.Zero,
		Days:       make([]attendance.AttendanceResponse, 0, 7),
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		a, ok := byDate[d.Format(calendar.DateLayout)]
		if !ok {
			a = attendance.Attendance{EmployeeID: employeeID, Date: d, DayOfWeek: d.Weekday().String()}
		}
		resp.TotalHours = resp.TotalHours.Add(a.TotalHours)
		for _, e := range a.Entries {
			resp.TotalDays = resp.TotalDays.Add(e.DaysWorked)
		}
		resp.Days = append(resp.Days, attendance.NewAttendanceResponse(a))
	}
	return resp, nil
}

// Daily implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Daily(ctx context.Context, actor employee.Employee, employeeID string, date string) (attendance.AttendanceResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	d, err := time.Parse(calendar.DateLayout, date)
	if err != nil {
		return attendance.AttendanceResponse{}, apperror.Validation("date must be in YYYY-MM-DD format")
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	a, err := s.GetByEmployeeDate(ctx, employeeID, d)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if a == nil {
		return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
	}
	return attendance.NewAttendanceResponse(*a), nil
}

// ProjectDaily implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ProjectDaily(ctx context.Context, actor employee.Employee, employeeID string, month string) ([]attendance.ProjectDailyResponse, error) {
	if employeeID == "" {
		employeeID = actor.ID
	}
	first, last, err := allocation.MonthRange(month)
	if err != nil {
		return nil, apperror.Validation("month must be in YYYY-MM format")
	}
	if err := s.canView(ctx, actor, employeeID); err != nil {
		return nil, err
	}
	rows, err := s.DailyProjects(ctx, employeeID, first, last)
	if err != nil {
		return nil, err
	}
	out := make([]attendance.ProjectDailyResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, attendance.ProjectDailyResponse{
			Date:        r.Date.Format(calendar.DateLayout),
			ProjectID:   r.ProjectID,
			ProjectName: r.ProjectName,
			Hours:       r.Hours,
			DaysWorked:  r.DaysWorked,
		})
	}
	return out, nil
}

func (s *AttendanceServiceImpl) canView(ctx context.Context, actor employee.Employee, employeeID string) error {
	if actor.ID == employeeID || auth.HasRole(actor, employee.RoleHR, employee.RoleAccountManager) {
		return nil
	}
	a, err := s.authority.AuthorityOver(ctx, actor, employeeID)
	if err != nil {
		return err
	}
	return auth.CanViewSubject(a).Err()
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isRejection reports whether err is a business rule or input failure rather
// than an infrastructure one.
func isRejection(err error) bool {
	var errs validator.ValidationErrors
	return errors.As(err, &errs) || apperror.KindOf(err) != apperror.KindInternal
}

func messageOf(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
