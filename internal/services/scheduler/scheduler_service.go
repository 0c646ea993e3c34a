package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

// Refresher is the part of a knowledge collection the scheduler drives
type Refresher interface {
	Refresh(ctx context.Context) models.RefreshStatus
}

// Service implements SchedulerService for the knowledge collections
type Service struct {
	config     common.KnowledgeConfig
	collection []Refresher
	cron       *cron.Cron
	entryID    cron.EntryID
	logger     arbor.ILogger
	mu         sync.Mutex // Protects running
	runMu      sync.Mutex // Serializes refresh rounds
	running    bool
}

// NewService creates a scheduler over the given collections, refreshed in order
func NewService(config common.KnowledgeConfig, logger arbor.ILogger, collections ...Refresher) *Service {
	return &Service{
		config:     config,
		collection: collections,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
	}
}

// Start adds the cron entry and starts the scheduler
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.config.RefreshSchedule
	if schedule == "" {
		schedule = "0 */15 * * * *"
	}

	entryID, err := s.cron.AddFunc(schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to add refresh schedule: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Bool("refresh_on_startup", s.config.RefreshOnStartup).
		Msg("Knowledge refresh scheduler started")

	if s.config.RefreshOnStartup {
		common.SafeGo(s.logger, "startup-refresh", func() {
			s.RunNow(ctx)
		})
	}

	return nil
}

// runScheduled is the cron callback; a tick that lands while a refresh is
// still running is skipped
func (s *Service) runScheduled() {
	if !s.runMu.TryLock() {
		s.logger.Debug().Msg("Skipping scheduled refresh, previous refresh still running")
		return
	}
	defer s.runMu.Unlock()

	s.refreshAll(context.Background())
}

// RunNow refreshes every collection, waiting for any refresh in progress
func (s *Service) RunNow(ctx context.Context) []models.RefreshStatus {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.refreshAll(ctx)
}

func (s *Service) refreshAll(ctx context.Context) []models.RefreshStatus {
	start := time.Now()
	statuses := make([]models.RefreshStatus, len(s.collection))

	var wg sync.WaitGroup
	for i, c := range s.collection {
		wg.Add(1)
		go func(i int, c Refresher) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered from panic in knowledge refresh")
				}
			}()
			statuses[i] = c.Refresh(ctx)
		}(i, c)
	}
	wg.Wait()

	failed := 0
	for _, status := range statuses {
		if !status.Healthy() {
			failed++
		}
	}

	s.logger.Debug().
		Int("collections", len(statuses)).
		Int("failed", failed).
		Str("duration", time.Since(start).String()).
		Msg("Knowledge refresh round complete")

	return statuses
}

// Stop halts the scheduler, drops its cron entry and waits up to 30 seconds
// for a running refresh
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	stopCtx := s.cron.Stop()
	s.cron.Remove(s.entryID)
	s.entryID = 0
	s.running = false

	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Timed out waiting for scheduled refresh to finish")
	}

	s.logger.Info().Msg("Knowledge refresh scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled refresh time
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

var _ interfaces.SchedulerService = (*Service)(nil)
