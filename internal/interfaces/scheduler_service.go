package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/concierge/internal/models"
)

// SchedulerService refreshes the knowledge collections on a cron schedule
type SchedulerService interface {
	// Start registers the schedule and, when configured, runs a refresh in the background
	Start(ctx context.Context) error

	// Stop halts the schedule and waits for a running refresh to finish
	Stop() error

	// RunNow refreshes every collection and returns their statuses
	RunNow(ctx context.Context) []models.RefreshStatus

	// IsRunning returns true if the schedule is active
	IsRunning() bool

	// NextRun returns the next scheduled refresh, zero when not running
	NextRun() time.Time
}
