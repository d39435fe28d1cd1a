// Package scheduler drives the periodic liveness scan.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/scanner"
)

// Scheduler runs a scan batch at a fixed interval until its context ends.
type Scheduler struct {
	scanner  *scanner.Scanner
	interval time.Duration
	batch    int
	log      *slog.Logger
}

// New builds a Scheduler.
func New(sc *scanner.Scanner, interval time.Duration, batch int, log *slog.Logger) *Scheduler {
	return &Scheduler{scanner: sc, interval: interval, batch: batch, log: log}
}

// Run blocks, scanning every interval, until ctx is cancelled. A tick that
// lands while a manual scan is in flight is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scan scheduler started", "interval", s.interval, "batch", s.batch)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scan scheduler stopped")
			return
		case <-ticker.C:
			res, err := s.scanner.Run(ctx, s.batch, 0)
			switch {
			case errors.Is(err, scanner.ErrRunning):
				s.log.Debug("scheduled scan skipped, one already running")
			case err != nil:
				s.log.Error("scheduled scan failed", "err", err)
			default:
				s.log.Info("scheduled scan done",
					"checked", res.Checked, "alive", res.Alive, "dead", res.Dead)
			}
		}
	}
}
