package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the reconciler periodically.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	schedule   string
	log        *zap.Logger

	entryID cron.EntryID

	// serializes passes from the schedule and from Trigger
	runMu   sync.Mutex
	lastMu  sync.RWMutex
	last    *Report
	lastRun time.Time
}

// NewScheduler creates a scheduler running reconciler on schedule, e.g. "@every 1m".
func NewScheduler(reconciler *Reconciler, schedule string, log *zap.Logger) *Scheduler {
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		schedule:   schedule,
		log:        log,
	}
}

// Start schedules the job and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Trigger(ctx); err != nil {
			s.log.Error("scheduled reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling reconciliation %q: %w", s.schedule, err)
	}
	s.entryID = id

	s.cron.Start()
	s.log.Info("reconcile scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running pass.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("reconcile scheduler stopped")
}

// Trigger runs one pass now.
func (s *Scheduler) Trigger(ctx context.Context) (*Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.reconciler.RunOnce(ctx)
	if err != nil {
		return nil, err
	}

	s.lastMu.Lock()
	s.last = report
	s.lastRun = time.Now().UTC()
	s.lastMu.Unlock()
	return report, nil
}

// Status describes the schedule and the latest pass.
type Status struct {
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	Last     *Report    `json:"last,omitempty"`
}

// Status returns the current schedule state.
func (s *Scheduler) Status() Status {
	st := Status{Schedule: s.schedule}
	if s.entryID != 0 {
		if entry := s.cron.Entry(s.entryID); !entry.Next.IsZero() {
			next := entry.Next
			st.NextRun = &next
		}
	}

	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last != nil {
		last := s.lastRun
		st.LastRun = &last
		st.Last = s.last
	}
	return st
}
