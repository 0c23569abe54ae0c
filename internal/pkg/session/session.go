// Package session stores external sign-in sessions referenced by access tokens.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session is unknown or expired.
var ErrNotFound = errors.New("session not found")

type Session struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Provider   string    `json:"provider"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is the single session abstraction; the backing is picked at startup.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// New builds a session for an employee with a fresh random id.
func New(employeeID, provider string, ttl time.Duration, now time.Time) Session {
	return Session{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Provider:   provider,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}
