// Package reaper periodically removes expired refresh tokens.
package reaper

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Reaper struct {
	store    Sweeper
	interval time.Duration
	log      *slog.Logger
	Now      func() time.Time
}

func New(store Sweeper, interval time.Duration, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{store: store, interval: interval, log: log.With("component", "refresh_reaper"), Now: time.Now}
}

// Sweep deletes every token that expired at or before now.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	n, err := r.store.DeleteExpired(ctx, now().UTC())
	if err != nil {
		r.log.Error("sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		r.log.Info("expired refresh tokens removed", "count", n)
	} else {
		r.log.Debug("nothing to sweep")
	}
	return n, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A failed sweep is logged and retried on the next tick.
func (r *Reaper) Run(ctx context.Context) {
	r.log.Info("reaper started", "interval", r.interval.String())
	_, _ = r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopped")
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
