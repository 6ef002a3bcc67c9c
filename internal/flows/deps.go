package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// Deps groups flow dependency sets. The root client builds this once and delegates
// operations to the matching flow implementation.
type Deps struct {
	Login     LoginDeps
	Logout    LogoutDeps
	Profile   ProfileDeps
	Rehydrate RehydrateDeps
}

// Transition is the result of applying one action: the states on either side and the
// outcome of persisting the new slice.
type Transition struct {
	Prev       session.Session
	Next       session.Session
	PersistErr error
}

// ApplyFunc dispatches action and persists the resulting slice, serialized against every
// other ApplyFunc call. A non-nil error means the action was rejected and nothing changed.
type ApplyFunc func(ctx context.Context, action session.Action) (Transition, error)

// AuditFunc records an audit event. metadata is only invoked when auditing is enabled.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}
