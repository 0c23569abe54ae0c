package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/email"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
	SendTimeout   time.Duration // default: 30 seconds, per recipient including retries
}

// delivery is one event addressed to one recipient.
type delivery struct {
	event     notification.Event
	recipient notification.Recipient
}

type service struct {
	repo    notification.Repository
	mailer  email.EmailService
	metrics *metrics.Metrics
	config  Config

	mu      sync.RWMutex
	stopped bool
	queue   chan delivery
	wg      sync.WaitGroup
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(repo notification.Repository, mailer email.EmailService, m *metrics.Metrics, cfg Config) notification.Service {
	// Set defaults
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	s := &service{
		repo:    repo,
		mailer:  mailer,
		metrics: m,
		config:  cfg,
		queue:   make(chan delivery, cfg.QueueSize),
	}

	// Start background workers
	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started",
		"workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)

	return s
}

// Notify implements notification.Notifier. It never blocks: when the queue
// is full the delivery is logged and dropped.
func (s *service) Notify(ctx context.Context, event notification.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range dedupe(event.Recipients) {
		if s.stopped {
			s.drop(event, r, "notifier stopped")
			continue
		}
		select {
		case s.queue <- delivery{event: event, recipient: r}:
		default:
			s.drop(event, r, notification.ErrQueueFull.Error())
		}
	}
}

func (s *service) drop(event notification.Event, r notification.Recipient, reason string) {
	s.metrics.Notification(metrics.ResultDropped)
	slog.Warn("notification dropped",
		"type", event.Type, "request_id", event.RequestID, "recipient_id", r.EmployeeID, "reason", reason)
}

// worker sends email per delivery and persists inbox entries in batches.
// It returns once the queue is closed and drained.
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]*notification.Notification, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Batch insert
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			slog.Error("failed to persist notifications", "worker", id, "count", len(batch), "error", err)
		} else {
			slog.Debug("notifications persisted", "worker", id, "count", len(batch))
		}

		batch = make([]*notification.Notification, 0, s.config.BatchSize)
	}

	for {
		select {
		case d, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			s.send(d)
			batch = append(batch, &notification.Notification{
				ID:          uuid.New().String(),
				RecipientID: d.recipient.EmployeeID,
				SenderID:    d.event.SenderID,
				Type:        d.event.Type,
				Title:       d.event.Title,
				Message:     d.event.Message,
				Data:        inboxData(d.event),
				CreatedAt:   time.Now(),
			})
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *service) send(d delivery) {
	if s.mailer == nil || d.recipient.Email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
	defer cancel()

	err := s.mailer.Send(ctx, d.recipient.Email, d.event.Title, d.event.Template(), message(d))
	switch {
	case err == nil:
		s.metrics.Notification(metrics.ResultSent)
	case errors.Is(err, email.ErrNotConfigured):
		s.metrics.Notification(metrics.ResultDropped)
	default:
		s.metrics.Notification(metrics.ResultFailed)
		slog.Error("notification email failed",
			"type", d.event.Type, "request_id", d.event.RequestID, "recipient_id", d.recipient.EmployeeID, "error", err)
	}
}

func message(d delivery) email.Message {
	msg := email.Message{
		RecipientName: d.recipient.Name,
		Title:         d.event.Title,
		Body:          d.event.Message,
		Details:       map[string]string{},
	}
	for _, a := range d.event.Actions {
		msg.Actions = append(msg.Actions, email.Link{Label: a.Label, URL: a.URL})
	}
	for k, v := range d.event.Data {
		if qs, ok := v.([]string); ok && k == "questions" {
			msg.Questions = qs
			continue
		}
		msg.Details[k] = fmt.Sprint(v)
	}
	return msg
}

// inboxData keeps the event payload and adds the request id and links.
func inboxData(e notification.Event) map[string]interface{} {
	data := make(map[string]interface{}, len(e.Data)+2)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.RequestID != "" {
		data["request_id"] = e.RequestID
	}
	if len(e.Actions) > 0 {
		links := make(map[string]string, len(e.Actions))
		for _, a := range e.Actions {
			links[a.Label] = a.URL
		}
		data["actions"] = links
	}
	return data
}

func dedupe(recipients []notification.Recipient) []notification.Recipient {
	seen := make(map[string]bool, len(recipients))
	out := make([]notification.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.EmployeeID == "" || seen[r.EmployeeID] {
			continue
		}
		seen[r.EmployeeID] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// toResponse converts a Notification entity to NotificationResponse
func toResponse(n *notification.Notification) notification.NotificationResponse {
	return notification.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// GetNotifications retrieves paginated notifications for a recipient
func (s *service) GetNotifications(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.repo.GetByRecipient(ctx, recipientID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = toResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// GetUnreadCount returns the count of unread notifications
func (s *service) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, recipientID)
}

// MarkAsRead marks specified notifications as read
func (s *service) MarkAsRead(ctx context.Context, recipientID string, req notification.MarkAsReadRequest) error {
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, recipientID)
}

// MarkAllAsRead marks all notifications as read for a recipient
func (s *service) MarkAllAsRead(ctx context.Context, recipientID string) error {
	return s.repo.MarkAllAsRead(ctx, recipientID)
}

// Stop closes the queue, lets the workers drain it and waits for them.
func (s *service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("notification service stopped")
}
