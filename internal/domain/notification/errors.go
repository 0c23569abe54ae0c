package notification

import "github.com/cmlabs-hris/hrms-engine/internal/pkg/apperror"

// Notification domain errors
var (
	ErrNotificationNotFound = apperror.NotFound("Notification not found")
	ErrQueueFull            = apperror.New(apperror.KindInternal, "Notification queue is full")
)
