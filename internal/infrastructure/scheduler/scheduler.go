// Package scheduler runs collection/document reconciliation on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/usecases"
)

// DefaultSchedule runs reconciliation at minute zero of every hour.
const DefaultSchedule = "0 0 * * * *"

// Runner is the job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (usecases.ReconcileReport, error)
}

// Scheduler triggers periodic reconciliation runs.
type Scheduler struct {
	runner  Runner
	cron    *cron.Cron
	timeout time.Duration
	logger  arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. Schedules use the six-field cron format
// with a leading seconds field.
func NewScheduler(runner Runner, timeout time.Duration, logger arbor.ILogger) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		runner:  runner,
		cron:    cron.New(cron.WithSeconds()),
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Reconcile scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Reconcile scheduler stopped")
}

// RunOnce runs reconciliation now. Overlapping runs are skipped.
func (s *Scheduler) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Reconcile already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled reconcile failed")
		return
	}

	s.logger.Info().
		Int("orphan_collections", len(report.OrphanCollections)).
		Int("stale_documents", len(report.StaleDocuments)).
		Bool("dry_run", report.DryRun).
		Dur("duration", time.Since(start)).
		Msg("Scheduled reconcile completed")
}
