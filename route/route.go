// Package route makes the first navigation decision once the rehydration gate settles.
package route

import (
	"context"

	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/session"
)

// Route is a top-level destination.
type Route uint8

const (
	// Loading is the neutral screen shown while rehydration is pending.
	Loading Route = iota
	// Welcome is the anonymous landing screen.
	Welcome
	// Home is the authenticated landing screen.
	Home
)

func (r Route) String() string {
	switch r {
	case Loading:
		return "loading"
	case Welcome:
		return "welcome"
	case Home:
		return "home"
	default:
		return "unknown"
	}
}

// Decide maps the gate phase and current session to a route. Nothing but Loading is
// returned until the gate has rehydrated.
func Decide(phase rehydrate.Phase, s session.Session) Route {
	if phase != rehydrate.PhaseRehydrated {
		return Loading
	}
	if s.IsAuthenticated && s.User != nil {
		return Home
	}
	return Welcome
}

// Resolve waits for gate and then decides using the state returned by source. If ctx ends
// first it returns Loading and the context error.
func Resolve(ctx context.Context, gate *rehydrate.Gate, source func() session.Session) (Route, error) {
	if gate == nil || source == nil {
		return Welcome, nil
	}
	out, err := gate.Wait(ctx)
	if err != nil {
		return Loading, err
	}
	return Decide(out.Phase, source()), nil
}
