package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, send func(ctx context.Context, to string, message []byte) error) *emailServiceImpl {
	t.Helper()
	svc, err := NewEmailService(config.SMTPConfig{Host: "smtp.test", Port: 25, From: "hrms@test", FromName: "HRMS"})
	require.NoError(t, err)
	impl := svc.(*emailServiceImpl)
	impl.send = send
	impl.backoff = func(int) time.Duration { return time.Millisecond }
	return impl
}

func TestSendRendersActionButtons(t *testing.T) {
	var captured string
	svc := newTestService(t, func(_ context.Context, to string, message []byte) error {
		assert.Equal(t, "manager@test", to)
		captured = string(message)
		return nil
	})

	err := svc.Send(context.Background(), "manager@test", "Leave request", "action_required.html", Message{
		RecipientName: "Maya",
		Title:         "Leave request awaiting your approval",
		Body:          "Ana requested 3 days of Annual Leave.",
		Actions: []Link{
			{Label: "Approve", URL: "https://hrms.test/leave/requests/r1?action=approve"},
			{Label: "Reject", URL: "https://hrms.test/leave/requests/r1?action=reject"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, captured, "Subject: Leave request")
	assert.Contains(t, captured, "Hi Maya")
	assert.Contains(t, captured, "action=approve")
	assert.Contains(t, captured, "action=reject")
}

func TestSendRetriesThenFails(t *testing.T) {
	attempts := 0
	svc := newTestService(t, func(context.Context, string, []byte) error {
		attempts++
		return errors.New("connection refused")
	})

	err := svc.Send(context.Background(), "a@test", "s", "status_update.html", Message{Title: "t"})
	require.Error(t, err)
	assert.Equal(t, maxRetries, attempts)
}

func TestSendSucceedsOnSecondAttempt(t *testing.T) {
	attempts := 0
	svc := newTestService(t, func(context.Context, string, []byte) error {
		attempts++
		if attempts == 1 {
			return errors.New("temporary failure")
		}
		return nil
	})

	require.NoError(t, svc.Send(context.Background(), "a@test", "s", "status_update.html", Message{Title: "t"}))
	assert.Equal(t, 2, attempts)
}

func TestSendWithoutHostIsNotConfigured(t *testing.T) {
	svc, err := NewEmailService(config.SMTPConfig{})
	require.NoError(t, err)

	err = svc.Send(context.Background(), "a@test", "s", "status_update.html", Message{Title: "t"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUnknownTemplate(t *testing.T) {
	svc := newTestService(t, func(context.Context, string, []byte) error { return nil })
	err := svc.Send(context.Background(), "a@test", "s", "missing.html", Message{})
	assert.Error(t, err)
}
