package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAllocationService struct {
	allocation.AllocationService
	months []string
	err    error
}

func (f *fakeAllocationService) GrantDefaults(_ context.Context, month string) (allocation.GrantResponse, error) {
	f.months = append(f.months, month)
	if f.err != nil {
		return allocation.GrantResponse{}, f.err
	}
	return allocation.GrantResponse{Month: month, Affected: 3}, nil
}

func TestGrantDefaultsRunsOncePerDay(t *testing.T) {
	svc := &fakeAllocationService{}
	jobs := NewAllocationJobs(svc)
	now := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return now }

	require.NoError(t, jobs.GrantDefaults(context.Background()))
	require.NoError(t, jobs.GrantDefaults(context.Background()))
	assert.Equal(t, []string{"2025-11"}, svc.months)

	now = now.Add(24 * time.Hour)
	require.NoError(t, jobs.GrantDefaults(context.Background()))
	assert.Equal(t, []string{"2025-11", "2025-11"}, svc.months)

	now = time.Date(2025, 12, 1, 0, 5, 0, 0, time.UTC)
	require.NoError(t, jobs.GrantDefaults(context.Background()))
	assert.Equal(t, "2025-12", svc.months[len(svc.months)-1])
}

func TestGrantDefaultsRetriesAfterFailure(t *testing.T) {
	svc := &fakeAllocationService{err: errors.New("db down")}
	jobs := NewAllocationJobs(svc)
	jobs.now = func() time.Time { return time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC) }

	assert.Error(t, jobs.GrantDefaults(context.Background()))
	svc.err = nil
	require.NoError(t, jobs.GrantDefaults(context.Background()))
	assert.Len(t, svc.months, 2)
}

func TestSchedulerRunOnceSurvivesPanics(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.AddJob("boom", time.Hour, func(context.Context) error { panic("boom") })
	s.AddJob("ok", time.Hour, func(context.Context) error { ran++; return nil })

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	assert.Equal(t, 1, ran)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}
