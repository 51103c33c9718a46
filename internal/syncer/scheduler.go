package syncer

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/harborstudio/teamsync/pkg/logger"
)

// Scheduler runs periodic background synchronization: flush pending
// pushes, then pull. External triggers (realtime push notifications)
// call the orchestrator directly; the scheduler is the safety net
// between them.
type Scheduler struct {
	orchestrator *Orchestrator
	userID       string
	spec         string
	cron         *cron.Cron
	entryID      cron.EntryID
}

func NewScheduler(orchestrator *Orchestrator, userID, spec string) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		userID:       userID,
		spec:         spec,
	}
}

// Start registers the cron entry and begins the schedule.
func (s *Scheduler) Start() error {
	s.cron = cron.New()

	entryID, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return err
	}
	s.entryID = entryID

	s.cron.Start()
	logger.Infof("[Scheduler] periodic sync scheduled (cron: %s)", s.spec)
	return nil
}

// Stop halts the schedule. A sync already running completes.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()

	if err := s.orchestrator.FlushPending(ctx); err != nil {
		logger.Warnf("[Scheduler] flush failed: %v", err)
	}

	progress := s.orchestrator.SyncAll(ctx, s.userID)
	if progress.HasErrors() {
		logger.Warn().
			Int("failed", progress.ErrorCount()).
			Msg("periodic sync completed with errors")
	}
}
