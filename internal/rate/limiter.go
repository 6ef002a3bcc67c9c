package rate

import (
	"context"
	"strings"
	"time"
)

// Config holds login throttle tuning parameters.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// Counter is a fixed-window counter store. Incr sets ttl only on the first hit of a
// window. Get returns zero for absent or expired keys.
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}

// Limiter counts rejected logins per identifier and refuses new attempts once the
// budget for the current window is spent.
type Limiter struct {
	counter Counter
	config  Config
}

// New creates a [Limiter] over counter.
func New(counter Counter, cfg Config) *Limiter {
	return &Limiter{
		counter: counter,
		config:  cfg,
	}
}

// CheckLogin returns ErrRateLimited when identifier has used up its attempts.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	count, err := l.counter.Get(ctx, loginKey(identifier))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure counts one rejected login for identifier. It returns ErrRateLimited once
// the failure exhausts the budget.
func (l *Limiter) RecordFailure(ctx context.Context, identifier string) error {
	count, err := l.counter.Incr(ctx, loginKey(identifier), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failure counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	return l.counter.Del(ctx, loginKey(identifier))
}

// Attempts returns the failures recorded for identifier in the current window.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.counter.Get(ctx, loginKey(identifier))
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Identifiers are case-folded so "Ada@x" and "ada@x" share one budget.
func loginKey(identifier string) string {
	return "al:" + strings.ToLower(strings.TrimSpace(identifier))
}
