package goSession

import (
	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/route"
	"github.com/MrEthical07/goSession/session"
)

// Version is reported in structured logs.
const Version = "0.1.0"

// LoginResult is returned by [Client.Login] when the gateway accepted the credentials.
// It is returned together with ErrStorageWrite when the session could not be saved; the
// in-memory session is authoritative either way.
type LoginResult struct {
	User    session.User
	Session session.Session
	Attempt uint64
}

// Outcome reports how startup rehydration settled.
type Outcome = rehydrate.Outcome

// Phase is the rehydration gate position.
type Phase = rehydrate.Phase

// Route is the first navigation decision.
type Route = route.Route

const (
	PhasePending           = rehydrate.PhasePending
	PhaseRehydrationFailed = rehydrate.PhaseRehydrationFailed
	PhaseRehydrated        = rehydrate.PhaseRehydrated

	RouteLoading = route.Loading
	RouteWelcome = route.Welcome
	RouteHome    = route.Home
)
