package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/services/jobs"
)

const defaultMaintenanceSchedule = "*/5 * * * *"

// Service runs periodic maintenance on a cron schedule: stale job
// detection and job log pruning.
type Service struct {
	cron           *cron.Cron
	manager        *jobs.Manager
	jobLogs        interfaces.JobLogStorage
	staleThreshold time.Duration
	retention      time.Duration
	logger         arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewService creates the maintenance scheduler. jobLogs may be nil when
// the log store is disabled; retentionDays <= 0 disables pruning.
func NewService(
	manager *jobs.Manager,
	jobLogs interfaces.JobLogStorage,
	staleThreshold time.Duration,
	retentionDays int,
	logger arbor.ILogger,
) *Service {
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Service{
		cron:           cron.New(),
		manager:        manager,
		jobLogs:        jobLogs,
		staleThreshold: staleThreshold,
		retention:      retention,
		logger:         logger,
	}
}

// Start begins the maintenance schedule.
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if cronExpr == "" {
		cronExpr = defaultMaintenanceSchedule
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runMaintenance); err != nil {
		return fmt.Errorf("failed to add maintenance job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Dur("stale_threshold", s.staleThreshold).
		Msg("Maintenance scheduler started")

	return nil
}

// Stop halts the scheduler. Safe to call when not running.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

func (s *Service) runMaintenance() {
	failed := s.manager.FailStaleJobs(s.staleThreshold)
	if len(failed) > 0 {
		s.logger.Warn().
			Int("count", len(failed)).
			Msg("Stale jobs marked failed")
	}

	if s.jobLogs == nil || s.retention <= 0 {
		return
	}

	cutoff := time.Now().Add(-s.retention)
	pruned, err := s.jobLogs.PruneBefore(context.Background(), cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Job log pruning failed")
		return
	}
	if pruned > 0 {
		s.logger.Info().
			Int("pruned", pruned).
			Msg("Pruned expired job logs")
	}
}
