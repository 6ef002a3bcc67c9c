package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Session session.Session
	Attempt uint64
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess      int
	LoginFailure      int
	LoginInvalidInput int
	LoginInProgress   int
	LoginStale        int
	PersistWriteError int
	LoginLatency      int
	LoginThrottled    int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess   string
	LoginFailure   string
	PersistFailure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	NotReady     error
	InvalidInput error
	// Rejected marks gateway rejections that count against the attempt budget.
	Rejected error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now          func() time.Time
	Ready        func() bool
	Apply        ApplyFunc
	Authenticate func(ctx context.Context, email, password string) (token string, user *session.User, err error)

	// Throttle returns an error when email may not attempt a login right now.
	Throttle      func(ctx context.Context, email string) error
	RecordFailure func(ctx context.Context, email string)
	ResetAttempts func(ctx context.Context, email string)

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	EmitAudit      AuditFunc
	Warn           func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin moves the session through LoginStart and then LoginSuccess or LoginFailure.
//
// Gateway rejections are returned unchanged after LoginFailure is applied. When the new
// slice cannot be persisted the result is still returned, together with the write error.
// A result that arrives after a newer attempt or a logout is dropped.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Apply == nil || deps.Authenticate == nil {
		return nil, deps.Errors.NotReady
	}
	if deps.Ready != nil && !deps.Ready() {
		return nil, deps.Errors.NotReady
	}

	if deps.Throttle != nil {
		if err := deps.Throttle(ctx, email); err != nil {
			deps.MetricInc(deps.Metrics.LoginThrottled)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, err
		}
	}

	started, err := deps.Apply(ctx, session.LoginStart{})
	if err != nil {
		if errors.Is(err, session.ErrLoginInProgress) {
			deps.MetricInc(deps.Metrics.LoginInProgress)
		}
		return nil, err
	}
	attempt := started.Next.Attempt
	begin := deps.Now()

	token, user, authErr := deps.Authenticate(ctx, email, password)
	deps.ObserveLatency(deps.Metrics.LoginLatency, deps.Now().Sub(begin))

	if authErr != nil {
		_, err := deps.Apply(ctx, session.LoginFailure{Attempt: attempt, Reason: authErr.Error()})
		if errors.Is(err, session.ErrStaleAttempt) {
			deps.MetricInc(deps.Metrics.LoginStale)
			deps.Warn("goSession: stale login failure dropped", "attempt", attempt)
		}

		if errors.Is(authErr, deps.Errors.InvalidInput) {
			deps.MetricInc(deps.Metrics.LoginInvalidInput)
		} else {
			deps.MetricInc(deps.Metrics.LoginFailure)
		}
		if deps.RecordFailure != nil && deps.Errors.Rejected != nil && errors.Is(authErr, deps.Errors.Rejected) {
			deps.RecordFailure(ctx, email)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", authErr, func() map[string]string {
			return map[string]string{
				"email":   email,
				"attempt": uitoa(attempt),
			}
		})
		return nil, authErr
	}

	done, err := deps.Apply(ctx, session.LoginSuccess{Attempt: attempt, Token: token, User: user})
	if err != nil {
		if errors.Is(err, session.ErrStaleAttempt) {
			deps.MetricInc(deps.Metrics.LoginStale)
			deps.Warn("goSession: stale login success dropped", "attempt", attempt)
		}
		return nil, err
	}

	result := &LoginResult{Session: done.Next, Attempt: attempt}
	if deps.ResetAttempts != nil {
		deps.ResetAttempts(ctx, email)
	}
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, nil)

	if done.PersistErr != nil {
		deps.MetricInc(deps.Metrics.PersistWriteError)
		deps.EmitAudit(ctx, deps.Events.PersistFailure, false, user.ID, done.PersistErr, func() map[string]string {
			return map[string]string{"op": "save"}
		})
		return result, done.PersistErr
	}
	return result, nil
}
