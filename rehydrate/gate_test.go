package rehydrate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type phaseRecorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *phaseRecorder) record(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *phaseRecorder) get() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func TestGateRehydratesOnSuccess(t *testing.T) {
	rec := &phaseRecorder{}
	var committed, defaulted atomic.Bool
	g := NewGate(Config{
		OnPhase:   rec.record,
		OnDefault: func() { defaulted.Store(true) },
	})
	assert.Equal(t, PhasePending, g.Phase())

	out := g.Run(context.Background(), func(context.Context) (Commit, error) {
		return func() error {
			committed.Store(true)
			return nil
		}, nil
	})

	assert.Equal(t, PhaseRehydrated, out.Phase)
	assert.False(t, out.Defaulted)
	assert.NoError(t, out.Err)
	assert.True(t, committed.Load())
	assert.False(t, defaulted.Load())
	assert.Equal(t, []Phase{PhaseRehydrated}, rec.get())

	select {
	case <-g.Done():
	default:
		t.Fatal("done channel must be closed after Run")
	}
}

func TestGateNilCommitMeansNothingToRestore(t *testing.T) {
	g := NewGate(Config{})
	out := g.Run(context.Background(), func(context.Context) (Commit, error) { return nil, nil })
	assert.Equal(t, PhaseRehydrated, out.Phase)
	assert.False(t, out.Defaulted)
}

func TestGateDefaultsOnLoadError(t *testing.T) {
	rec := &phaseRecorder{}
	var defaulted atomic.Bool
	loadErr := errors.New("disk on fire")
	g := NewGate(Config{
		OnPhase:   rec.record,
		OnDefault: func() { defaulted.Store(true) },
	})

	out := g.Run(context.Background(), func(context.Context) (Commit, error) {
		return nil, loadErr
	})

	assert.Equal(t, PhaseRehydrated, out.Phase)
	assert.True(t, out.Defaulted)
	assert.ErrorIs(t, out.Err, loadErr)
	assert.True(t, defaulted.Load())
	assert.Equal(t, []Phase{PhaseRehydrationFailed, PhaseRehydrated}, rec.get())
}

func TestGateDefaultsOnCommitError(t *testing.T) {
	commitErr := errors.New("rejected")
	g := NewGate(Config{})
	out := g.Run(context.Background(), func(context.Context) (Commit, error) {
		return func() error { return commitErr }, nil
	})
	assert.True(t, out.Defaulted)
	assert.ErrorIs(t, out.Err, commitErr)
}

func TestGateTimesOut(t *testing.T) {
	var committed atomic.Bool
	g := NewGate(Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	out := g.Run(context.Background(), func(ctx context.Context) (Commit, error) {
		<-ctx.Done()
		return func() error {
			committed.Store(true)
			return nil
		}, nil
	})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, PhaseRehydrated, out.Phase)
	assert.True(t, out.Defaulted)
	assert.ErrorIs(t, out.Err, ErrRehydrationTimeout)
	assert.False(t, committed.Load(), "late results must be discarded")
}

func TestGateParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGate(Config{Timeout: time.Minute})
	out := g.Run(ctx, func(ctx context.Context) (Commit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.True(t, out.Defaulted)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestGateRecoversPanickingLoad(t *testing.T) {
	g := NewGate(Config{})
	out := g.Run(context.Background(), func(context.Context) (Commit, error) {
		panic("boom")
	})
	assert.True(t, out.Defaulted)
	assert.ErrorContains(t, out.Err, "boom")
}

func TestGateRunsOnce(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(Config{})
	load := func(context.Context) (Commit, error) {
		calls.Add(1)
		return nil, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := g.Run(context.Background(), load)
			assert.Equal(t, PhaseRehydrated, out.Phase)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGateWait(t *testing.T) {
	g := NewGate(Config{})
	release := make(chan struct{})

	go g.Run(context.Background(), func(context.Context) (Commit, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	out, err := g.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhasePending, out.Phase)
	_, settled := g.Outcome()
	assert.False(t, settled)

	close(release)
	out, err = g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseRehydrated, out.Phase)
	assert.Equal(t, PhaseRehydrated, g.Phase())
}
