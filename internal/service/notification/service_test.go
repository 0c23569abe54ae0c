package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/email"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	entries []*notification.Notification
	err     error
}

func (r *fakeRepo) CreateBatch(_ context.Context, batch []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, batch...)
	return nil
}

func (r *fakeRepo) GetByRecipient(_ context.Context, recipientID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.entries {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	list, _, err := r.GetByRecipient(ctx, recipientID, 1, 100, true)
	return len(list), err
}

func (r *fakeRepo) MarkAsRead(_ context.Context, ids []string, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for _, n := range r.entries {
		if n.RecipientID == recipientID && want[n.ID] {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeRepo) MarkAllAsRead(_ context.Context, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.entries {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type sentMail struct {
	to, subject, template string
	msg                   email.Message
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	err     error
	started chan struct{}
	release chan struct{}
}

func (m *fakeMailer) Send(_ context.Context, to, subject, templateName string, msg email.Message) error {
	if m.started != nil {
		m.started <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, template: templateName, msg: msg})
	return m.err
}

func (m *fakeMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func counter(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "hrms_notifications_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func event(recipients ...notification.Recipient) notification.Event {
	return notification.Event{
		Type:       notification.TypeLeaveSubmitted,
		Title:      "Leave request awaiting your approval",
		Message:    "Dian requested Casual Leave.",
		RequestID:  "lr-1",
		Recipients: recipients,
		Actions:    notification.Links{BaseURL: "https://hr.example.com"}.ApproveReject("leave", "lr-1"),
		Data:       map[string]interface{}{"category": "Casual Leave"},
	}
}

var (
	maya = notification.Recipient{EmployeeID: "mgr", Name: "Maya", Email: "maya@example.com"}
	hana = notification.Recipient{EmployeeID: "hr", Name: "Hana", Email: "hana@example.com"}
	oka  = notification.Recipient{EmployeeID: "oka", Name: "Oka", Email: "oka@example.com"}
)

func TestDeliversEmailAndInbox(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRepo{}
	mailer := &fakeMailer{}
	svc := NewNotificationService(repo, mailer, metrics.New(reg), Config{WorkerCount: 1, FlushInterval: time.Hour})

	svc.Notify(context.Background(), event(maya, hana, maya))
	svc.Stop()

	require.Equal(t, 2, repo.count(), "duplicate recipients are notified once")
	sent := mailer.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "hana@example.com", sent[0].to)
	assert.Equal(t, "action_required.html", sent[0].template)
	require.Len(t, sent[0].msg.Actions, 2)
	assert.Equal(t, "Casual Leave", sent[0].msg.Details["category"])
	assert.Equal(t, 2.0, counter(t, reg, metrics.ResultSent))

	inbox, err := svc.GetNotifications(context.Background(), "mgr", 1, 20, false)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, "lr-1", inbox.Notifications[0].Data["request_id"])
	assert.Equal(t, 1, inbox.UnreadCount)

	require.NoError(t, svc.MarkAllAsRead(context.Background(), "mgr"))
	unread, err := svc.GetUnreadCount(context.Background(), "mgr")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestQueueFullDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRepo{}
	mailer := &fakeMailer{started: make(chan struct{}, 3), release: make(chan struct{})}
	svc := NewNotificationService(repo, mailer, metrics.New(reg), Config{WorkerCount: 1, QueueSize: 1, FlushInterval: time.Hour})

	svc.Notify(context.Background(), event(maya))
	<-mailer.started // the worker holds the first delivery

	done := make(chan struct{})
	go func() {
		svc.Notify(context.Background(), event(hana, oka))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(mailer.release)
	svc.Stop()

	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 1.0, counter(t, reg, metrics.ResultDropped))
}

func TestNotifyAfterStopIsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, &fakeMailer{}, metrics.New(reg), Config{WorkerCount: 2})
	svc.Stop()
	svc.Stop()

	assert.NotPanics(t, func() { svc.Notify(context.Background(), event(maya)) })
	assert.Zero(t, repo.count())
	assert.Equal(t, 1.0, counter(t, reg, metrics.ResultDropped))
}

func TestFailuresNeverReachTheCaller(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRepo{}
	mailer := &fakeMailer{err: errors.New("connection refused")}
	svc := NewNotificationService(repo, mailer, metrics.New(reg), Config{WorkerCount: 1})

	svc.Notify(context.Background(), event(maya))
	svc.Stop()
	assert.Equal(t, 1.0, counter(t, reg, metrics.ResultFailed))
	assert.Equal(t, 1, repo.count(), "inbox is written even when email fails")

	failing := &fakeRepo{err: errors.New("db down")}
	svc = NewNotificationService(failing, nil, nil, Config{WorkerCount: 1})
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), event(maya))
		svc.Stop()
	})
}

func TestInboxReadStateIsPerRecipient(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, nil, nil, Config{WorkerCount: 1, FlushInterval: time.Hour})
	svc.Notify(context.Background(), event(maya, hana))
	svc.Notify(context.Background(), event(maya))
	svc.Stop()

	ctx := context.Background()
	count, err := svc.GetUnreadCount(ctx, "mgr")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := svc.GetNotifications(ctx, "mgr", 1, 20, false)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, notification.TypeLeaveSubmitted, list.Notifications[0].Type)

	require.NoError(t, svc.MarkAsRead(ctx, "mgr", notification.MarkAsReadRequest{NotificationIDs: []string{list.Notifications[0].ID}}))
	count, err = svc.GetUnreadCount(ctx, "mgr")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllAsRead(ctx, "mgr"))
	count, err = svc.GetUnreadCount(ctx, "mgr")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.GetUnreadCount(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "other recipients keep their unread entries")
}

func TestQuestionnaireMessage(t *testing.T) {
	msg := message(delivery{
		event: notification.Event{
			Type:  notification.TypeSoftwareQuestionnaire,
			Title: "Compliance questionnaire",
			Data:  map[string]interface{}{"questions": []string{"Q1", "Q2"}, "software_name": "Figma"},
		},
		recipient: oka,
	})
	assert.Equal(t, []string{"Q1", "Q2"}, msg.Questions)
	assert.Equal(t, "Figma", msg.Details["software_name"])
	assert.NotContains(t, msg.Details, "questions")
	assert.Equal(t, "Oka", msg.RecipientName)
}
