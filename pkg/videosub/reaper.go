package videosub

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically sweeps stale upload sessions. It is started alongside
// the server and stopped by cancelling its context.
type Reaper struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
}

// NewReaper creates a reaper sweeping at the given interval. A zero
// interval uses the default recheck interval.
func NewReaper(svc Service, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultRecheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{svc: svc, interval: interval, logger: logger}
}

// Sweep runs one cleanup pass and returns the number of sessions swept.
// Concurrent sweeps are safe: remote deletes tolerate absence and record
// writes are idempotent.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	return r.svc.ReapStale(ctx)
}

// Run sweeps until ctx is cancelled. Sweep failures are logged and the loop
// keeps going; a single bad pass must not stop reaping.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Error("stale session sweep failed", "err", err)
			}
		}
	}
}
