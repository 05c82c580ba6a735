// Package sweeper bounds storage growth: on a fixed interval it
// submits a purge through the bridge. A missed or delayed sweep is
// deferred cleanup, not an error; correctness never depends on sweep
// timing.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/store"
)

const (
	DefaultInterval  = time.Hour
	DefaultRetention = 30 * 24 * time.Hour
)

type Sweeper struct {
	bridge    *bridge.Bridge
	interval  time.Duration
	retention time.Duration
	log       *slog.Logger
}

func New(b *bridge.Bridge, interval, retention time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		bridge:    b,
		interval:  interval,
		retention: retention,
		log:       log.With("component", "sweeper"),
	}
}

// Run sweeps until ctx is cancelled. The first sweep happens one full
// interval after start, not immediately: startup traffic outranks
// cleanup.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.log.Info("sweeper started",
		"interval", sw.interval.String(),
		"retention", sw.retention.String())
	for {
		select {
		case <-ctx.Done():
			sw.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			sw.SweepOnce()
		}
	}
}

// SweepOnce posts a single purge. Fire-and-forget: a failed purge is
// logged by the bridge and retried naturally at the next tick.
func (sw *Sweeper) SweepOnce() {
	retention := sw.retention
	sw.bridge.Post(func(ctx context.Context, s *store.Store) error {
		_, err := s.PurgeOlderThan(ctx, retention)
		return err
	})
}
