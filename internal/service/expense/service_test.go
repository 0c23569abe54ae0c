package expense

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/approval"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/expense"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/storage"
	authservice "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/service/file"
	"github.com/cmlabs-hris/hrms-engine/internal/service/servicetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpenses struct {
	mu          sync.Mutex
	seq         int
	codes       map[string]int
	rows        map[string]expense.ExpenseRequest
	attachments map[string][]expense.Attachment
	history     map[string][]expense.History
	registry    *servicetest.Registry
}

func newFakeExpenses(registry *servicetest.Registry) *fakeExpenses {
	return &fakeExpenses{
		codes:       map[string]int{},
		rows:        map[string]expense.ExpenseRequest{},
		attachments: map[string][]expense.Attachment{},
		history:     map[string][]expense.History{},
		registry:    registry,
	}
}

func (f *fakeExpenses) NextCode(_ context.Context, day time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := day.Format("20060102")
	f.codes[d]++
	return fmt.Sprintf("EXP-%s-%04d", d, f.codes[d]), nil
}

func (f *fakeExpenses) Create(_ context.Context, req expense.ExpenseRequest) (expense.ExpenseRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	req.ID = fmt.Sprintf("exp-%d", f.seq)
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.rows[req.ID] = req
	return req, nil
}

func (f *fakeExpenses) GetByID(_ context.Context, id string) (expense.ExpenseRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return expense.ExpenseRequest{}, expense.ErrExpenseNotFound
	}
	return e, nil
}

func (f *fakeExpenses) GetByIDForUpdate(ctx context.Context, id string) (expense.ExpenseRequest, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeExpenses) list(match func(expense.ExpenseRequest) bool) []expense.ExpenseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []expense.ExpenseRequest
	for _, e := range f.rows {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeExpenses) ListByEmployee(_ context.Context, employeeID string, filter expense.ExpenseFilter) ([]expense.ExpenseRequest, int64, error) {
	out := f.list(func(e expense.ExpenseRequest) bool {
		if e.EmployeeID != employeeID {
			return false
		}
		if e.DeletedAt != nil && !filter.IncludeArchived {
			return false
		}
		return filter.Status == nil || e.Status == *filter.Status
	})
	return out, int64(len(out)), nil
}

func (f *fakeExpenses) subjects(members []assignment.Member) map[string]bool {
	ids := map[string]bool{}
	for _, m := range members {
		ids[m.EmployeeID] = true
	}
	return ids
}

func (f *fakeExpenses) ListPendingForManager(ctx context.Context, managerID string) ([]expense.ExpenseRequest, error) {
	members, err := f.registry.EmployeesManagedBy(ctx, managerID)
	if err != nil {
		return nil, err
	}
	ids := f.subjects(members)
	return f.list(func(e expense.ExpenseRequest) bool {
		return ids[e.EmployeeID] && e.Status == expense.StatusPendingManager
	}), nil
}

func (f *fakeExpenses) ListPendingForHR(ctx context.Context, hrID string, allEmployees bool) ([]expense.ExpenseRequest, error) {
	members, err := f.registry.EmployeesHRdBy(ctx, hrID)
	if err != nil {
		return nil, err
	}
	ids := f.subjects(members)
	return f.list(func(e expense.ExpenseRequest) bool {
		return (allEmployees || ids[e.EmployeeID]) && e.EmployeeID != hrID && e.Status == expense.StatusPendingHR
	}), nil
}

func (f *fakeExpenses) ListByStatus(_ context.Context, status expense.Status) ([]expense.ExpenseRequest, error) {
	return f.list(func(e expense.ExpenseRequest) bool { return e.Status == status && e.DeletedAt == nil }), nil
}

func (f *fakeExpenses) UpdateStatus(_ context.Context, id string, from, to expense.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return expense.ErrExpenseNotFound
	}
	if e.Status != from {
		return expense.ErrStageAlreadyActed
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	f.rows[id] = e
	return nil
}

func (f *fakeExpenses) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	delete(f.attachments, id)
	delete(f.history, id)
	return nil
}

func (f *fakeExpenses) Archive(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.rows[id]
	now := time.Now()
	e.DeletedAt = &now
	f.rows[id] = e
	return nil
}

func (f *fakeExpenses) StatisticsByEmployee(_ context.Context, employeeID string) ([]expense.StatusStat, error) {
	byStatus := map[expense.Status]*expense.StatusStat{}
	for _, e := range f.list(func(e expense.ExpenseRequest) bool { return e.EmployeeID == employeeID }) {
		st, ok := byStatus[e.Status]
		if !ok {
			st = &expense.StatusStat{Status: e.Status, Total: decimal.Zero}
			byStatus[e.Status] = st
		}
		st.Count++
		st.Total = st.Total.Add(e.FinalAmount)
	}
	var out []expense.StatusStat
	for _, s := range expense.AllStatuses() {
		if st, ok := byStatus[s]; ok {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (f *fakeExpenses) AddAttachment(_ context.Context, a expense.Attachment) (expense.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.ID = fmt.Sprintf("att-%d", f.seq)
	a.UploadedAt = time.Now()
	f.attachments[a.RequestID] = append(f.attachments[a.RequestID], a)
	return a, nil
}

func (f *fakeExpenses) ListAttachments(_ context.Context, requestID string) ([]expense.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]expense.Attachment(nil), f.attachments[requestID]...), nil
}

func (f *fakeExpenses) GetAttachment(ctx context.Context, requestID, attachmentID string) (expense.Attachment, error) {
	list, _ := f.ListAttachments(ctx, requestID)
	for _, a := range list {
		if a.ID == attachmentID {
			return a, nil
		}
	}
	return expense.Attachment{}, expense.ErrAttachmentNotFound
}

func (f *fakeExpenses) AppendHistory(_ context.Context, h expense.History) (expense.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	h.ID = fmt.Sprintf("h-%d", f.seq)
	h.CreatedAt = time.Now()
	f.history[h.RequestID] = append(f.history[h.RequestID], h)
	return h, nil
}

func (f *fakeExpenses) ListHistory(_ context.Context, requestID string) ([]expense.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]expense.History(nil), f.history[requestID]...), nil
}

type fixture struct {
	svc      expense.ExpenseService
	repo     *fakeExpenses
	storage  *storage.LocalStorage
	notifier *servicetest.Notifier

	dev, mgr, hr, shr, am, other employee.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dev:   employee.Employee{ID: "dev", Name: "Dian", Email: "dian@example.com", Role: employee.RoleEmployee},
		mgr:   employee.Employee{ID: "mgr", Name: "Maya", Email: "maya@example.com", Role: employee.RoleManager},
		hr:    employee.Employee{ID: "hr", Name: "Hana", Email: "hana@example.com", Role: employee.RoleHR},
		shr:   employee.Employee{ID: "shr", Name: "Sari", Email: "sari@example.com", Role: employee.RoleHR, SuperHR: true},
		am:    employee.Employee{ID: "am", Name: "Arif", Email: "arif@example.com", Role: employee.RoleAccountManager},
		other: employee.Employee{ID: "other", Name: "Oka", Email: "oka@example.com", Role: employee.RoleEmployee},
	}
	employees := servicetest.NewEmployees(f.dev, f.mgr, f.hr, f.shr, f.am, f.other)
	registry := servicetest.NewRegistry(employees)
	registry.Assign(assignment.RelationManager, f.dev.ID, f.mgr.ID)
	registry.Assign(assignment.RelationHR, f.dev.ID, f.hr.ID)

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f.storage = local
	f.repo = newFakeExpenses(registry)
	f.notifier = &servicetest.Notifier{}
	f.svc = NewExpenseService(
		servicetest.Tx{},
		f.repo,
		file.NewFileService(local),
		employees,
		registry,
		authservice.NewAuthorityResolver(registry),
		f.notifier,
		notification.Links{BaseURL: "https://hr.example.com"},
		nil,
	)
	return f
}

func pdfReceipt() expense.Receipt {
	return expense.Receipt{FileName: "taxi.pdf", ContentType: "application/pdf", Size: 8, File: strings.NewReader("%PDF-1.4")}
}

func submitRequest(t *testing.T, receipts ...expense.Receipt) expense.SubmitExpenseRequest {
	t.Helper()
	req := expense.SubmitExpenseRequest{
		Category:      "Travel",
		Amount:        "100",
		Currency:      "idr",
		Description:   "Airport taxi",
		ExpenseDate:   "2025-11-20",
		TaxApplicable: true,
		TaxPercentage: "10",
		Receipts:      receipts,
	}
	require.NoError(t, req.Validate())
	return req
}

func act(t *testing.T, action string) approval.ActRequest {
	t.Helper()
	req := approval.ActRequest{Action: action}
	require.NoError(t, req.Validate())
	return req
}

func TestExpenseEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusPendingManager), created.Status)
	assert.Equal(t, "110", created.FinalAmount.String())
	assert.Equal(t, "IDR", created.Currency)
	assert.True(t, strings.HasPrefix(created.Code, "EXP-"+time.Now().Format("20060102")+"-"), created.Code)
	require.Len(t, created.Attachments, 1)

	submitted := f.notifier.Of(notification.TypeExpenseAwaitingApproval)
	require.Len(t, submitted, 1)
	assert.Equal(t, []string{"mgr"}, servicetest.RecipientIDs(submitted[0]))

	// HR cannot act before the manager.
	_, err = f.svc.Act(ctx, f.hr, created.ID, expense.StageHR, act(t, "approve"))
	assert.ErrorIs(t, err, expense.ErrStageAlreadyActed)

	resp, err := f.svc.Act(ctx, f.mgr, created.ID, expense.StageManager, act(t, "approve"))
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusPendingHR), resp.Status)
	awaiting := f.notifier.Of(notification.TypeExpenseAwaitingApproval)
	require.Len(t, awaiting, 2)
	assert.Equal(t, []string{"hr"}, servicetest.RecipientIDs(awaiting[1]))

	_, err = f.svc.Act(ctx, f.mgr, created.ID, expense.StageManager, act(t, "approve"))
	assert.ErrorIs(t, err, expense.ErrStageAlreadyActed)

	resp, err = f.svc.Act(ctx, f.hr, created.ID, expense.StageHR, act(t, "approve"))
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusPendingAccountManager), resp.Status)
	awaiting = f.notifier.Of(notification.TypeExpenseAwaitingApproval)
	require.Len(t, awaiting, 3)
	assert.Equal(t, []string{"am"}, servicetest.RecipientIDs(awaiting[2]))

	resp, err = f.svc.Act(ctx, f.am, created.ID, expense.StageAccountManager, act(t, "approve"))
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusApproved), resp.Status)
	require.Len(t, resp.History, 3)
	assert.Equal(t, string(expense.StatusPendingManager), resp.History[0].FromStatus)
	assert.Equal(t, string(employee.RoleAccountManager), resp.History[2].ActorRole)

	approved := f.notifier.Of(notification.TypeExpenseApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, []string{"dev"}, servicetest.RecipientIDs(approved[0]))
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)

	reason := "Missing itinerary"
	req := approval.ActRequest{Action: "reject", Reason: &reason}
	require.NoError(t, req.Validate())
	resp, err := f.svc.Act(ctx, f.mgr, created.ID, expense.StageManager, req)
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusRejectedByManager), resp.Status)
	require.Len(t, resp.History, 1)
	assert.Equal(t, reason, *resp.History[0].Reason)

	rejected := f.notifier.Of(notification.TypeExpenseRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Message, reason)

	_, err = f.svc.Act(ctx, f.hr, created.ID, expense.StageHR, act(t, "approve"))
	assert.ErrorIs(t, err, expense.ErrStageAlreadyActed)
}

func TestSubmitGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.dev, submitRequest(t))
	assert.ErrorIs(t, err, expense.ErrReceiptRequired)

	_, err = f.svc.Submit(ctx, f.other, submitRequest(t, pdfReceipt()))
	assert.ErrorIs(t, err, expense.ErrNoManagerAssigned)

	big := pdfReceipt()
	big.Size = expense.MaxReceiptSize + 1
	req := expense.SubmitExpenseRequest{Category: "Travel", Amount: "10", Currency: "IDR", ExpenseDate: "2025-11-20", Receipts: []expense.Receipt{big}}
	assert.Error(t, req.Validate())
	_, err = f.svc.Submit(ctx, f.dev, req)
	assert.ErrorIs(t, err, expense.ErrFileTooLarge)
}

func TestApproverAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)

	for _, tc := range []struct {
		name  string
		actor employee.Employee
		stage expense.Stage
	}{
		{"unassigned manager", f.other, expense.StageManager},
		{"self approval", f.dev, expense.StageManager},
		{"manager as account manager", f.mgr, expense.StageAccountManager},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Act(ctx, tc.actor, created.ID, tc.stage, act(t, "approve"))
			assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
		})
	}

	// Super-HR may act without an assignment.
	_, err = f.svc.Act(ctx, f.mgr, created.ID, expense.StageManager, act(t, "approve"))
	require.NoError(t, err)
	resp, err := f.svc.Act(ctx, f.shr, created.ID, expense.StageHR, act(t, "approve"))
	require.NoError(t, err)
	assert.Equal(t, string(expense.StatusPendingAccountManager), resp.Status)
}

func TestCancelAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)
	stored := f.repo.attachments[created.ID][0].StoredPath

	assert.ErrorIs(t, f.svc.Cancel(ctx, f.mgr, created.ID), expense.ErrNotOwner)
	require.NoError(t, f.svc.Cancel(ctx, f.dev, created.ID))

	_, err = f.svc.Get(ctx, f.dev, created.ID)
	assert.ErrorIs(t, err, expense.ErrExpenseNotFound)
	exists, err := f.storage.Exists(ctx, stored)
	require.NoError(t, err)
	assert.False(t, exists, "cancelled receipts are removed from storage")

	second, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Archive(ctx, f.dev, second.ID), expense.ErrArchiveNotAllowed)

	_, err = f.svc.Act(ctx, f.mgr, second.ID, expense.StageManager, act(t, "reject"))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Cancel(ctx, f.dev, second.ID), expense.ErrCancelNotAllowed)

	require.NoError(t, f.svc.Archive(ctx, f.dev, second.ID))
	require.NoError(t, f.svc.Archive(ctx, f.dev, second.ID))

	mine, err := f.svc.ListMine(ctx, f.dev, expense.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine.Expenses)

	archived, err := f.svc.Get(ctx, f.dev, second.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	assert.Len(t, archived.History, 1, "history survives archiving")
}

func TestReceiptDownscaledAndServed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 2000, 100))))
	wide := expense.Receipt{FileName: "scan.PNG", ContentType: "image/png", Size: int64(buf.Len()), File: buf}

	created, err := f.svc.Submit(ctx, f.dev, submitRequest(t, wide))
	require.NoError(t, err)
	attID := created.Attachments[0].ID

	att, rc, err := f.svc.OpenAttachment(ctx, f.mgr, created.ID, attID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.ContentType)

	cfg, err := png.DecodeConfig(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, file.MaxReceiptWidth, cfg.Width)
	assert.Equal(t, 80, cfg.Height)

	_, _, err = f.svc.OpenAttachment(ctx, f.other, created.ID, attID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, _, err = f.svc.OpenAttachment(ctx, f.dev, created.ID, "missing")
	assert.ErrorIs(t, err, expense.ErrAttachmentNotFound)
}

func TestPendingListsAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.dev, submitRequest(t, pdfReceipt()))
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, f.mgr, expense.StageManager)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.Act(ctx, f.mgr, first.ID, expense.StageManager, act(t, "approve"))
	require.NoError(t, err)

	hrQueue, err := f.svc.ListPending(ctx, f.hr, expense.StageHR)
	require.NoError(t, err)
	assert.Len(t, hrQueue, 1)

	_, err = f.svc.ListPending(ctx, f.mgr, expense.StageHR)
	assert.ErrorIs(t, err, employee.ErrHRAccessRequired)
	_, err = f.svc.ListPending(ctx, f.hr, expense.StageAccountManager)
	assert.ErrorIs(t, err, expense.ErrAccountManagerOnly)

	stats, err := f.svc.Statistics(ctx, f.dev)
	require.NoError(t, err)
	require.Len(t, stats.Mine, 2)
	assert.Equal(t, string(expense.StatusPendingManager), stats.Mine[0].Status)
	assert.Equal(t, int64(1), stats.Mine[0].Count)
	assert.Equal(t, "110", stats.Mine[1].Total.String())

	hrStats, err := f.svc.Statistics(ctx, f.hr)
	require.NoError(t, err)
	assert.Equal(t, 1, hrStats.Pending["hr"])
	assert.Equal(t, 0, hrStats.Pending["manager"])
}
