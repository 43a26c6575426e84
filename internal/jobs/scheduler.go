// Package jobs runs background ledger maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/services"
)

// IntegrityRunner is satisfied by *services.IntegrityChecker.
type IntegrityRunner interface {
	Run(ctx context.Context) (*services.IntegrityReport, error)
}

// Scheduler runs the ledger integrity check on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	integrity IntegrityRunner
	schedule  string
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewScheduler creates a new integrity check scheduler
func NewScheduler(integrity IntegrityRunner, schedule string, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		integrity: integrity,
		schedule:  schedule,
		timeout:   5 * time.Minute,
		log:       log,
	}
}

// Start registers the jobs and starts the cron loop. ctx bounds every run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunIntegrityCheck(ctx) }); err != nil {
		return fmt.Errorf("schedule integrity check %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("[CRON] scheduler started")
	return nil
}

// RunIntegrityCheck runs one check now. Failures are logged, not returned.
func (s *Scheduler) RunIntegrityCheck(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.integrity.Run(ctx)
	if err != nil {
		s.log.WithError(err).Error("[CRON] integrity check failed")
		return
	}
	if !report.OK() {
		s.log.WithField("unbalanced_refs", len(report.Unbalanced)).Error("[CRON] ledger integrity violations found")
		return
	}
	s.log.Debug("[CRON] integrity check passed")
}

// Stop halts the cron and waits for a running check to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("[CRON] scheduler stopped")
}
