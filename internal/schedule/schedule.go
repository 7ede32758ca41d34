package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/ops"
)

// Refresher runs one refresh.
type Refresher interface {
	Refresh(ctx context.Context) (*ops.RefreshOutput, error)
}

// Scheduler triggers refreshes on a cron schedule while the server runs.
// Overlapping ticks are skipped rather than queued.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	logger    *zap.Logger
	timeout   time.Duration
}

// New parses spec (standard 5-field cron or a descriptor such as "@every 6h")
// and registers the refresh job. timeout bounds each run; 0 means no bound.
func New(spec string, refresher Refresher, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher: refresher,
		logger:    logger,
		timeout:   timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started", zap.Time("next", s.Next()))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
}

// Next returns the next activation time, or the zero time if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled refresh completed",
		zap.String("run_id", out.RunID),
		zap.Int("processed", out.Processed),
		zap.Int("errors", out.Errors))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
