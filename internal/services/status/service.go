package status

import (
	"time"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

// Report is the service status served to operators
type Report struct {
	Version     string                 `json:"version"`
	StartedAt   time.Time              `json:"started_at"`
	Uptime      string                 `json:"uptime"`
	Healthy     bool                   `json:"healthy"`
	NextRefresh *time.Time             `json:"next_refresh,omitempty"`
	Collections []models.RefreshStatus `json:"collections"`
}

// Service reports the state of both collections and the refresh schedule
type Service struct {
	faqs       interfaces.FaqIndex
	procedures interfaces.ProcedureIndex
	scheduler  interfaces.SchedulerService
	startedAt  time.Time
}

// NewService creates a status service. scheduler may be nil.
func NewService(faqs interfaces.FaqIndex, procedures interfaces.ProcedureIndex, scheduler interfaces.SchedulerService) *Service {
	return &Service{
		faqs:       faqs,
		procedures: procedures,
		scheduler:  scheduler,
		startedAt:  time.Now(),
	}
}

// Collections returns the refresh status of each collection, FAQ first
func (s *Service) Collections() []models.RefreshStatus {
	return []models.RefreshStatus{s.faqs.Status(), s.procedures.Status()}
}

// GetStatus builds the full report. Healthy is false when any configured
// collection's last refresh failed.
func (s *Service) GetStatus() Report {
	collections := s.Collections()

	healthy := true
	for _, c := range collections {
		if c.Configured && !c.Healthy() {
			healthy = false
		}
	}

	report := Report{
		Version:     common.GetVersion(),
		StartedAt:   s.startedAt,
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Healthy:     healthy,
		Collections: collections,
	}

	if s.scheduler != nil {
		if next := s.scheduler.NextRun(); !next.IsZero() {
			report.NextRefresh = &next
		}
	}

	return report
}
