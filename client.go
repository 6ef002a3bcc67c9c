package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/persist"
	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/route"
	"github.com/MrEthical07/goSession/session"
)

// Client owns one session: the store, its persistence, the gateway and the rehydration
// gate. It is the only thing UI collaborators talk to.
type Client struct {
	config  Config
	store   *session.Store
	adapter *persist.Adapter
	gateway gateway.Gateway
	limiter *rate.Limiter
	gate    *rehydrate.Gate
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	flows   flows.Service
	now     func() time.Time

	// applyMu serializes dispatch+persist so writes reach storage in transition order.
	applyMu sync.Mutex

	startOnce sync.Once
	closed    atomic.Bool
}

type clientDeps struct {
	config  Config
	gateway gateway.Gateway
	adapter *persist.Adapter
	limiter *rate.Limiter
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
}

func newClient(d clientDeps) *Client {
	c := &Client{
		config:  d.config,
		store:   session.NewStore(session.Session{}),
		adapter: d.adapter,
		gateway: d.gateway,
		limiter: d.limiter,
		audit:   d.audit,
		metrics: d.metrics,
		logger:  d.logger,
		now:     time.Now,
	}

	c.gate = rehydrate.NewGate(rehydrate.Config{
		Timeout: d.config.Rehydrate.Timeout,
		OnDefault: func() {
			_, _ = c.apply(context.Background(), session.Logout{})
		},
		Logger: d.logger,
	})

	loginDeps := flows.LoginDeps{
		Now:            c.now,
		Ready:          c.ready,
		Apply:          c.apply,
		Authenticate:   c.authenticate,
		MetricInc:      c.metricInc,
		ObserveLatency: c.metricObserve,
		EmitAudit:      c.flowAudit,
		Warn:           c.logger.Warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:      int(MetricLoginSuccess),
			LoginFailure:      int(MetricLoginFailure),
			LoginInvalidInput: int(MetricLoginInvalidInput),
			LoginInProgress:   int(MetricLoginInProgress),
			LoginStale:        int(MetricLoginStale),
			PersistWriteError: int(MetricPersistWriteFailure),
			LoginLatency:      int(MetricLoginLatency),
			LoginThrottled:    int(MetricLoginThrottled),
		},
		Events: flows.LoginEvents{
			LoginSuccess:   auditEventLoginSuccess,
			LoginFailure:   auditEventLoginFailure,
			PersistFailure: auditEventPersistFailure,
		},
		Errors: flows.LoginErrors{
			NotReady:     ErrNotReady,
			InvalidInput: ErrInvalidInput,
			Rejected:     ErrAuthenticationFailed,
		},
	}
	if c.limiter != nil {
		loginDeps.Throttle = c.throttle
		loginDeps.RecordFailure = c.recordLoginFailure
		loginDeps.ResetAttempts = c.resetLoginAttempts
	}

	c.flows = flows.New(flows.Deps{
		Logout: flows.LogoutDeps{
			Ready:       c.ready,
			Apply:       c.apply,
			RevokeToken: c.gateway.Logout,
			MetricInc:   c.metricInc,
			EmitAudit:   c.flowAudit,
			Warn:        c.logger.Warn,
			Metrics: flows.LogoutMetrics{
				Logout:             int(MetricLogout),
				PersistDeleteError: int(MetricPersistDeleteFailure),
				RevokeFailure:      int(MetricLogoutRevokeFailure),
			},
			Events: flows.LogoutEvents{
				Logout:         auditEventLogout,
				PersistFailure: auditEventPersistFailure,
			},
			NotReady: ErrNotReady,
		},
		Profile: flows.ProfileDeps{
			Ready:               c.ready,
			Apply:               c.apply,
			MetricInc:           c.metricInc,
			EmitAudit:           c.flowAudit,
			ProfileUpdateMetric: int(MetricProfileUpdate),
			PersistWriteMetric:  int(MetricPersistWriteFailure),
			ProfileUpdateEvent:  auditEventProfileUpdate,
			PersistFailureEvent: auditEventPersistFailure,
			NotReady:            ErrNotReady,
		},
		Rehydrate: flows.RehydrateDeps{
			Load: func(ctx context.Context) ([]byte, bool, error) {
				return c.adapter.Load(ctx, c.config.Persist.Key)
			},
			Decode: session.DecodeSnapshot,
			Apply:  c.apply,
			Purge: func(ctx context.Context) error {
				return c.adapter.Remove(context.WithoutCancel(ctx), c.config.Persist.Key)
			},
			MetricInc: c.metricInc,
			Warn:      c.logger.Warn,
			Metrics: flows.RehydrateMetrics{
				Restored:    int(MetricRehydrateRestored),
				Empty:       int(MetricRehydrateEmpty),
				Corrupt:     int(MetricRehydrateCorrupt),
				PurgeFailed: int(MetricPersistPurgeFailure),
			},
		},
		Login: loginDeps,
	})

	return c
}

/*
====================================
LIFECYCLE
====================================
*/

// Start restores the persisted session, bounded by Config.Rehydrate.Timeout, and opens
// the gate. It never fails: unreadable or corrupt data and timeouts all settle on an
// empty session, recorded in the returned Outcome. Later calls return the first Outcome.
func (c *Client) Start(ctx context.Context) Outcome {
	c.startOnce.Do(func() {
		out := c.gate.Run(ctx, c.flows.RehydrateLoader())

		c.metrics.Observe(MetricRehydrateLatency, out.Duration)
		if out.Defaulted {
			c.metricInc(int(MetricRehydrateDefaulted))
		}
		if errors.Is(out.Err, ErrRehydrationTimeout) {
			c.metricInc(int(MetricRehydrateTimeout))
		}

		restored := c.store.State().IsAuthenticated
		c.emitAudit(ctx, auditEventRehydrate, !out.Defaulted, c.userID(), out.Err, func() map[string]string {
			return map[string]string{
				"restored": strconv.FormatBool(restored),
				"duration": auditDuration(out.Duration),
			}
		})
		c.logger.Info("goSession: rehydrated",
			slog.Bool("restored", restored),
			slog.Bool("defaulted", out.Defaulted),
			slog.Duration("duration", out.Duration),
		)
	})
	out, _ := c.gate.Outcome()
	return out
}

// Ready is closed once rehydration has settled.
func (c *Client) Ready() <-chan struct{} {
	return c.gate.Done()
}

// Outcome returns the settled rehydration outcome, or ok=false before Start has finished.
func (c *Client) Outcome() (Outcome, bool) {
	return c.gate.Outcome()
}

// Wait blocks until rehydration settles or ctx is done.
func (c *Client) Wait(ctx context.Context) (Outcome, error) {
	return c.gate.Wait(ctx)
}

// Phase returns the rehydration gate position.
func (c *Client) Phase() Phase {
	return c.gate.Phase()
}

// Route returns the navigation decision for the current state without blocking. It is
// RouteLoading until rehydration settles.
func (c *Client) Route() Route {
	return route.Decide(c.gate.Phase(), c.store.State())
}

// ResolveRoute waits for rehydration and then decides the first route.
func (c *Client) ResolveRoute(ctx context.Context) (Route, error) {
	return route.Resolve(ctx, c.gate, c.store.State)
}

// Close stops the audit dispatcher after draining it. Session operations fail with
// ErrClosed afterwards.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

/*
====================================
SESSION OPERATIONS
====================================
*/

// Login exchanges credentials for a session.
//
// Rejections from the gateway leave the session Anonymous and are returned unchanged, so
// errors.Is(err, ErrInvalidInput) and errors.Is(err, ErrAuthenticationFailed) hold. Use
// [DisplayMessage] for UI text. Login never retries.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	res, err := c.flows.Login(ctx, email, password)
	if res == nil {
		return nil, err
	}

	out := &LoginResult{Session: res.Session, Attempt: res.Attempt}
	if res.Session.User != nil {
		out.User = *res.Session.User.Clone()
	}
	return out, err
}

// Logout clears the session atomically, removes the persisted slice and notifies the
// gateway. Logging out an anonymous session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.flows.Logout(ctx)
}

// UpdateUser replaces the profile of the authenticated user without touching the token.
func (c *Client) UpdateUser(ctx context.Context, user session.User) error {
	if c.closed.Load() {
		return ErrClosed
	}
	_, err := c.flows.UpdateUser(ctx, user)
	return err
}

// Dispatch submits a raw action. The resulting slice is persisted like any other
// transition; a persistence failure is returned after the transition has been applied.
func (c *Client) Dispatch(ctx context.Context, action session.Action) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.ready() {
		return ErrNotReady
	}
	tr, err := c.apply(ctx, action)
	if err != nil {
		return err
	}
	return tr.PersistErr
}

/*
====================================
OBSERVATION
====================================
*/

// State returns a copy of the current session.
func (c *Client) State() session.Session {
	return c.store.State()
}

// IsAuthenticated reports whether the session holds a token.
func (c *Client) IsAuthenticated() bool {
	return c.store.State().IsAuthenticated
}

// Loading reports whether a login attempt is in flight.
func (c *Client) Loading() bool {
	return c.store.State().Loading
}

// User returns the current profile, or nil when anonymous.
func (c *Client) User() *session.User {
	return c.store.State().User
}

// Subscribe registers fn for every accepted transition. fn runs synchronously on the
// dispatching goroutine and must not call back into the Client.
func (c *Client) Subscribe(fn session.Listener) (cancel func()) {
	return c.store.Subscribe(fn)
}

// MetricsSnapshot returns the current counters and latency histograms.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped reports audit events dropped because the dispatcher buffer was full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

/*
====================================
INTERNALS
====================================
*/

func (c *Client) ready() bool {
	select {
	case <-c.gate.Done():
		return true
	default:
		return false
	}
}

// apply runs one transition and persists the resulting slice while holding applyMu.
func (c *Client) apply(ctx context.Context, action session.Action) (flows.Transition, error) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	prev, next, err := c.store.Dispatch(action)
	if err != nil {
		c.reportRejected(action, err)
		return flows.Transition{Prev: prev, Next: prev}, err
	}

	tr := flows.Transition{Prev: prev, Next: next}
	if action.Kind() == session.KindRehydrate {
		return tr, nil
	}
	tr.PersistErr = c.persist(context.WithoutCancel(ctx), prev, next)
	return tr, nil
}

func (c *Client) persist(ctx context.Context, prev, next session.Session) error {
	nextSnap, nextOK := session.Slice(next)
	_, prevOK := session.Slice(prev)

	switch {
	case nextOK:
		if prevOK && prev.Equal(next) {
			return nil
		}
		data, err := session.EncodeSnapshot(nextSnap)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorageWrite, err)
		}
		return c.adapter.Save(ctx, c.config.Persist.Key, data)
	case prevOK:
		return c.adapter.Remove(ctx, c.config.Persist.Key)
	default:
		return nil
	}
}

func (c *Client) reportRejected(action session.Action, err error) {
	if errors.Is(err, session.ErrInvalidTransition) || errors.Is(err, session.ErrInvalidAction) {
		c.metricInc(int(MetricInvalidTransition))
		logging.LogError(c.logger, "goSession: rejected session transition", err,
			slog.String("action", action.Kind().String()),
		)
	}
}

func (c *Client) authenticate(ctx context.Context, email, password string) (string, *session.User, error) {
	grant, err := c.gateway.Login(ctx, gateway.Credentials{Email: email, Password: password})
	if err != nil {
		return "", nil, err
	}
	if grant == nil || grant.Token == "" || grant.User == nil {
		return "", nil, fmt.Errorf("%w: incomplete grant", ErrGatewayUnavailable)
	}
	return grant.Token, grant.User, nil
}

// throttle fails open when the counter store is unreachable.
func (c *Client) throttle(ctx context.Context, email string) error {
	err := c.limiter.CheckLogin(ctx, email)
	if err == nil || errors.Is(err, rate.ErrRateLimited) {
		return err
	}
	logging.LogWarn(c.logger, "goSession: login throttle unavailable", err)
	return nil
}

func (c *Client) recordLoginFailure(ctx context.Context, email string) {
	err := c.limiter.RecordFailure(context.WithoutCancel(ctx), email)
	if err != nil && !errors.Is(err, rate.ErrRateLimited) {
		logging.LogWarn(c.logger, "goSession: could not record failed login", err)
	}
}

func (c *Client) resetLoginAttempts(ctx context.Context, email string) {
	if err := c.limiter.ResetLogin(context.WithoutCancel(ctx), email); err != nil {
		logging.LogWarn(c.logger, "goSession: could not reset login attempts", err)
	}
}

func (c *Client) userID() string {
	if u := c.store.State().User; u != nil {
		return u.ID
	}
	return ""
}

func (c *Client) metricInc(id int) {
	c.metrics.Inc(MetricID(id))
}

func (c *Client) metricObserve(id int, d time.Duration) {
	c.metrics.Observe(MetricID(id), d)
}

func (c *Client) flowAudit(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string) {
	c.emitAudit(ctx, event, success, userID, err, metadata)
}
