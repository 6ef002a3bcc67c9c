package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// ProfileDeps captures profile update dependencies.
type ProfileDeps struct {
	Ready func() bool
	Apply ApplyFunc

	MetricInc func(int)
	EmitAudit AuditFunc

	ProfileUpdateMetric int
	PersistWriteMetric  int
	ProfileUpdateEvent  string
	PersistFailureEvent string
	NotReady            error
}

// RunUpdateUser replaces the profile of an authenticated session and re-persists the slice.
func RunUpdateUser(ctx context.Context, user session.User, deps ProfileDeps) (session.Session, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Apply == nil {
		return session.Session{}, deps.NotReady
	}
	if deps.Ready != nil && !deps.Ready() {
		return session.Session{}, deps.NotReady
	}

	tr, err := deps.Apply(ctx, session.UpdateUser{User: &user})
	if err != nil {
		return tr.Prev, err
	}

	deps.MetricInc(deps.ProfileUpdateMetric)
	deps.EmitAudit(ctx, deps.ProfileUpdateEvent, true, user.ID, nil, nil)

	if tr.PersistErr != nil {
		deps.MetricInc(deps.PersistWriteMetric)
		deps.EmitAudit(ctx, deps.PersistFailureEvent, false, user.ID, tr.PersistErr, func() map[string]string {
			return map[string]string{"op": "save"}
		})
		return tr.Next, tr.PersistErr
	}
	return tr.Next, nil
}
