package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/allocation"
)

// AllocationJobs keeps the default In-House allocation of the current month
// in place for every active employee.
type AllocationJobs struct {
	allocationService allocation.AllocationService
	now               func() time.Time

	mu      sync.Mutex
	lastRun string
}

func NewAllocationJobs(allocationService allocation.AllocationService) *AllocationJobs {
	return &AllocationJobs{allocationService: allocationService, now: time.Now}
}

func (j *AllocationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("grant_default_allocations", 1*time.Hour, j.GrantDefaults)
}

// GrantDefaults runs at most once per calendar day (UTC).
func (j *AllocationJobs) GrantDefaults(ctx context.Context) error {
	now := j.now().UTC()
	today := now.Format("2006-01-02")

	j.mu.Lock()
	if j.lastRun == today {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()

	month := allocation.MonthOf(now)
	slog.Info("Cron: granting default allocations", "month", month)

	result, err := j.allocationService.GrantDefaults(ctx, month)
	if err != nil {
		return fmt.Errorf("grant default allocations for %s: %w", month, err)
	}

	j.mu.Lock()
	j.lastRun = today
	j.mu.Unlock()

	slog.Info("Cron: default allocations granted", "month", month, "affected", result.Affected)
	return nil
}
