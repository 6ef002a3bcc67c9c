package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout             int
	PersistDeleteError int
	RevokeFailure      int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout         string
	PersistFailure string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Ready       func() bool
	Apply       ApplyFunc
	RevokeToken func(ctx context.Context, token string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics  LogoutMetrics
	Events   LogoutEvents
	NotReady error
}

// RunLogout clears the session in one transition, removes the persisted slice, and then
// tells the gateway about the old token. Gateway failures are only logged.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Apply == nil {
		return deps.NotReady
	}
	if deps.Ready != nil && !deps.Ready() {
		return deps.NotReady
	}

	tr, err := deps.Apply(ctx, session.Logout{})
	if err != nil {
		return err
	}
	if tr.Prev.Equal(tr.Next) {
		return nil
	}

	userID := ""
	if tr.Prev.User != nil {
		userID = tr.Prev.User.ID
	}
	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)

	if tr.Prev.Token != "" && deps.RevokeToken != nil {
		if err := deps.RevokeToken(ctx, tr.Prev.Token); err != nil {
			deps.MetricInc(deps.Metrics.RevokeFailure)
			deps.Warn("goSession: gateway logout failed", "error", err)
		}
	}

	if tr.PersistErr != nil {
		deps.MetricInc(deps.Metrics.PersistDeleteError)
		deps.EmitAudit(ctx, deps.Events.PersistFailure, false, userID, tr.PersistErr, func() map[string]string {
			return map[string]string{"op": "remove"}
		})
		return tr.PersistErr
	}
	return nil
}
