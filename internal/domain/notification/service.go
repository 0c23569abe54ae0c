package notification

import (
	"context"
)

// Notifier accepts events fire-and-forget. Failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Service defines the notification service interface
type Service interface {
	Notifier

	GetNotifications(ctx context.Context, recipientID string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkAsRead(ctx context.Context, recipientID string, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, recipientID string) error

	// Stop drains the queue and waits for workers.
	Stop()
}
