// Package scheduler triggers scans on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pauljones0/property-scanner/internal/processor"
)

// Scheduler runs the shared Scanner on a cron spec.
type Scheduler struct {
	cron       *cron.Cron
	runner     processor.Runner
	spec       string
	runTimeout time.Duration

	mu        sync.Mutex
	isRunning bool
}

func New(runner processor.Runner, spec string, runTimeout time.Duration) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cron:       cron.New(),
		runner:     runner,
		spec:       spec,
		runTimeout: runTimeout,
	}
}

// Start registers the job and starts the cron loop. An empty spec disables
// scheduling.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		slog.Info("Scheduler disabled, no schedule configured")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	s.isRunning = true
	slog.Info("Scheduler started", "schedule", s.spec)
	return nil
}

// Stop stops the cron loop and waits for a job in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in scheduled scan", "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	slog.Info("Scheduled scan starting")
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, processor.ErrRunInProgress):
		slog.Info("Skipping scheduled scan, another scan is running")
	case err != nil:
		slog.Error("Scheduled scan failed", "error", err)
	default:
		slog.Info("Scheduled scan completed", "run_id", report.RunID, "summary", report.Summary())
	}
}
