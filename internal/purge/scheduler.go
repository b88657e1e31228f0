// Package purge removes expired notes on a fixed interval.
package purge

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purger deletes every expired note and reports how many were removed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs a Purger periodically until stopped.
type Scheduler struct {
	mu       sync.RWMutex
	purger   Purger
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(p Purger, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		purger:   p,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce performs a single purge and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("purge expired notes", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired notes", "count", n)
	} else {
		s.logger.Debug("purged expired notes", "count", n)
	}
	return n, nil
}

// Start begins the purge loop. The first purge happens one interval after
// Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight purge to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
