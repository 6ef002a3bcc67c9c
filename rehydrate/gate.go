package rehydrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/logging"
)

// DefaultTimeout bounds how long Run waits for the load.
const DefaultTimeout = 10 * time.Second

// ErrRehydrationTimeout is recorded when the load does not finish within the timeout.
var ErrRehydrationTimeout = errors.New("rehydration timed out")

// Phase is the gate's position.
type Phase uint8

const (
	// PhasePending means restore has not finished. The UI shows a neutral loading state.
	PhasePending Phase = iota
	// PhaseRehydrationFailed is the transient phase while defaults are applied.
	PhaseRehydrationFailed
	// PhaseRehydrated means the first route decision may be made.
	PhaseRehydrated
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseRehydrationFailed:
		return "rehydration_failed"
	case PhaseRehydrated:
		return "rehydrated"
	default:
		return "unknown"
	}
}

// Commit applies restored state. It is called at most once, and only when the load
// finished before the timeout.
type Commit func() error

// LoadFunc reads persisted state and returns the Commit that applies it. A nil Commit
// means there was nothing to restore.
type LoadFunc func(ctx context.Context) (Commit, error)

// Outcome records how the gate settled.
type Outcome struct {
	Phase     Phase
	Defaulted bool
	Err       error
	Duration  time.Duration
}

// Config controls a Gate.
type Config struct {
	Timeout time.Duration
	// OnDefault resets to an empty session after a failed restore.
	OnDefault func()
	// OnPhase observes every phase change, including the transient failure phase.
	OnPhase func(Phase)
	Logger  *slog.Logger
}

// Gate is a one-shot rehydration barrier. The zero value is not usable; call NewGate.
type Gate struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	runOnce sync.Once
	done    chan struct{}

	mu      sync.RWMutex
	phase   Phase
	outcome Outcome
}

// NewGate returns a Pending gate.
func NewGate(cfg Config) *Gate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gate{
		cfg:    cfg,
		logger: logging.OrDiscard(cfg.Logger),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Run executes load exactly once and settles the gate. Later calls return the first outcome.
func (g *Gate) Run(ctx context.Context, load LoadFunc) Outcome {
	g.runOnce.Do(func() {
		g.settle(g.restore(ctx, load))
	})
	out, _ := g.Outcome()
	return out
}

func (g *Gate) restore(ctx context.Context, load LoadFunc) (out Outcome) {
	start := g.now()
	defer func() { out.Duration = g.now().Sub(start) }()

	if load == nil {
		return Outcome{Phase: PhaseRehydrated}
	}

	loadCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	type result struct {
		commit Commit
		err    error
	}
	results := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r = result{err: fmt.Errorf("rehydrate: load panicked: %v", p)}
			}
			results <- r
		}()
		r.commit, r.err = load(loadCtx)
	}()

	select {
	case r := <-results:
		// A load that only returned because its deadline fired counts as a timeout.
		if loadCtx.Err() != nil {
			return g.fail(g.expired(ctx))
		}
		if r.err == nil && r.commit != nil {
			r.err = r.commit()
		}
		if r.err != nil {
			return g.fail(r.err)
		}
		return Outcome{Phase: PhaseRehydrated}
	case <-loadCtx.Done():
		return g.fail(g.expired(ctx))
	}
}

func (g *Gate) expired(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %s", ErrRehydrationTimeout, g.cfg.Timeout)
}

func (g *Gate) fail(err error) Outcome {
	g.setPhase(PhaseRehydrationFailed)
	logging.LogWarn(g.logger, "rehydration failed; continuing with an empty session", err,
		slog.Duration("timeout", g.cfg.Timeout),
	)
	if g.cfg.OnDefault != nil {
		g.cfg.OnDefault()
	}
	return Outcome{Phase: PhaseRehydrated, Defaulted: true, Err: err}
}

func (g *Gate) settle(out Outcome) {
	g.mu.Lock()
	g.outcome = out
	g.mu.Unlock()
	g.setPhase(PhaseRehydrated)
	close(g.done)
}

func (g *Gate) setPhase(p Phase) {
	g.mu.Lock()
	g.phase = p
	g.mu.Unlock()
	if g.cfg.OnPhase != nil {
		g.cfg.OnPhase(p)
	}
}

// Phase returns the current phase without blocking.
func (g *Gate) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// Done is closed once the gate reaches PhaseRehydrated.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Outcome returns the settled outcome, or ok=false while the gate is still running.
func (g *Gate) Outcome() (Outcome, bool) {
	select {
	case <-g.done:
	default:
		return Outcome{Phase: g.Phase()}, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.outcome, true
}

// Wait blocks until the gate settles or ctx is done.
func (g *Gate) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-g.done:
		out, _ := g.Outcome()
		return out, nil
	case <-ctx.Done():
		return Outcome{Phase: g.Phase()}, ctx.Err()
	}
}
