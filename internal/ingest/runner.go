package ingest

import (
	"context"
	"time"

	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

// Runner re-runs ingestion on a fixed interval. A failing run is logged
// and the loop continues; only context cancellation stops it.
type Runner struct {
	ingester *Ingester
	store    *store.Store
	interval time.Duration
}

// NewRunner creates a periodic runner
func NewRunner(ingester *Ingester, db *store.Store, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{ingester: ingester, store: db, interval: interval}
}

// Run executes one ingestion immediately, then again every interval
// until the context is cancelled
func (r *Runner) Run(ctx context.Context, sources func() ([]Source, error)) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx, sources)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, sources func() ([]Source, error)) {
	// wait out a temporarily unreachable store rather than burning a run
	if err := r.waitForStore(ctx); err != nil {
		return
	}

	srcs, err := sources()
	if err != nil {
		util.ErrorLog("Failed to enumerate sources: %v", err)
		return
	}
	if len(srcs) == 0 {
		util.DebugLog("No sources to ingest, sleeping")
		return
	}

	if _, err := r.ingester.Run(ctx, srcs); err != nil && ctx.Err() == nil {
		util.ErrorLog("Ingestion run failed: %v", err)
	}
}

func (r *Runner) waitForStore(ctx context.Context) error {
	const probeInterval = 5 * time.Second

	for {
		if err := r.store.Ping(ctx); err == nil {
			return nil
		} else {
			util.WarnLog("Store unreachable, retrying in %s: %v", probeInterval, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(probeInterval):
		}
	}
}
