// Package scheduler runs the pipeline jobs on fixed intervals. Each job gets
// its own goroutine and runs synchronously within it, so two ticks of the
// same job never overlap while different jobs proceed independently.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scriptflow/internal/logging"
	"scriptflow/internal/services"
	"scriptflow/internal/session"
)

// Job is one schedulable unit of pipeline work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its tick interval.
type Entry struct {
	Job      Job
	Interval time.Duration
}

// Scheduler drives the registered jobs until stopped.
type Scheduler struct {
	store    *session.Store
	entries  []Entry
	leaseTTL time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a scheduler. leaseTTL of zero disables stale-claim recovery.
func New(store *session.Store, entries []Entry, leaseTTL time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		store:    store,
		entries:  entries,
		leaseTTL: leaseTTL,
		logger:   logger,
	}
}

// Start launches one loop per job. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, entry := range s.entries {
		if entry.Job == nil || entry.Interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.loop(runCtx, entry)
	}
}

// Stop cancels the loops and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the scheduler has been started and not yet stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, entry Entry) {
	defer s.wg.Done()

	logger := s.logger.With(logging.String(logging.FieldComponent, "scheduler"),
		logging.String("job", entry.Job.Name()))
	logger.Info("job loop started", logging.String("interval", entry.Interval.String()))

	// First tick runs immediately so a restart does not wait a full interval.
	s.tick(ctx, entry, logger)

	ticker := time.NewTicker(entry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("job loop stopped")
			return
		case <-ticker.C:
			s.tick(ctx, entry, logger)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, entry Entry, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	tickCtx := services.WithCorrelationID(ctx, uuid.NewString())

	if s.leaseTTL > 0 {
		if reclaimed, err := s.store.ReclaimStale(tickCtx, s.leaseTTL); err != nil {
			logger.Warn("stale claim recovery failed", logging.Error(err))
		} else if reclaimed > 0 {
			logger.Warn("recovered stale claims", logging.Int64("count", reclaimed))
		}
	}

	if err := entry.Job.Run(tickCtx); err != nil && ctx.Err() == nil {
		logger.Error("job run failed", logging.Error(err))
	}
}
