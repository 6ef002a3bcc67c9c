package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/session"
)

// RehydrateMetrics carries metric IDs needed by the rehydrate loader.
type RehydrateMetrics struct {
	Restored    int
	Empty       int
	Corrupt     int
	PurgeFailed int
}

// RehydrateDeps captures rehydration dependencies.
type RehydrateDeps struct {
	// Load returns ok=false for an absent slice and an error for one that failed integrity
	// checks in storage.
	Load   func(ctx context.Context) ([]byte, bool, error)
	Decode func([]byte) (session.Snapshot, error)
	Apply  ApplyFunc
	// Purge removes an unreadable persisted slice so the next start is clean.
	Purge func(ctx context.Context) error

	MetricInc func(int)
	Warn      func(string, ...any)

	Metrics RehydrateMetrics
}

// NewRehydrateLoader returns the load step for a rehydrate.Gate. An absent slice restores
// nothing. A corrupt slice, whether storage rejected it or it fails to decode, is purged on
// a best-effort basis and reported as a load error, which sends the gate down the defaults
// path.
func NewRehydrateLoader(deps RehydrateDeps) rehydrate.LoadFunc {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}

	return func(ctx context.Context) (rehydrate.Commit, error) {
		if deps.Load == nil || deps.Decode == nil || deps.Apply == nil {
			return nil, nil
		}

		corrupt := func(err error) error {
			deps.MetricInc(deps.Metrics.Corrupt)
			if deps.Purge != nil {
				if perr := deps.Purge(ctx); perr != nil {
					deps.MetricInc(deps.Metrics.PurgeFailed)
					deps.Warn("goSession: purge of corrupt session failed", "error", perr)
				}
			}
			return err
		}

		raw, ok, err := deps.Load(ctx)
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			return nil, corrupt(fmt.Errorf("load persisted session: %w", err))
		}
		if !ok {
			deps.MetricInc(deps.Metrics.Empty)
			return nil, nil
		}

		snap, err := deps.Decode(raw)
		if err != nil {
			return nil, corrupt(fmt.Errorf("decode persisted session: %w", err))
		}

		return func() error {
			if _, err := deps.Apply(ctx, session.Rehydrate{Snapshot: snap}); err != nil {
				return err
			}
			deps.MetricInc(deps.Metrics.Restored)
			return nil
		}, nil
	}
}
