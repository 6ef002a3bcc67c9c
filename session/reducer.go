package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrLoginInProgress is returned when LoginStart arrives while an attempt is in flight.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrStaleAttempt is returned when a login result belongs to a superseded attempt.
	ErrStaleAttempt = errors.New("stale login attempt")
	// ErrInvalidAction is returned for nil actions or actions with missing payload.
	ErrInvalidAction = errors.New("invalid session action")
)

// Reduce applies a to s and returns the next state. s is never modified.
//
// On error the returned state equals s. Callers must treat ErrInvalidTransition as a
// defect in the caller's sequencing, not as something to correct silently.
func Reduce(s Session, a Action) (Session, error) {
	if a == nil {
		return s, ErrInvalidAction
	}

	switch act := a.(type) {
	case LoginStart:
		return reduceLoginStart(s)
	case LoginSuccess:
		return reduceLoginSuccess(s, act)
	case LoginFailure:
		return reduceLoginFailure(s, act)
	case UpdateUser:
		return reduceUpdateUser(s, act)
	case Logout:
		return reduceLogout(s), nil
	case Rehydrate:
		return reduceRehydrate(s, act)
	default:
		return s, fmt.Errorf("%w: unknown action %T", ErrInvalidAction, a)
	}
}

func reduceLoginStart(s Session) (Session, error) {
	switch s.Status() {
	case StatusAuthenticating:
		return s, ErrLoginInProgress
	case StatusAuthenticated:
		return s, fmt.Errorf("%w: login_start from %s", ErrInvalidTransition, s.Status())
	}

	next := anonymous(s.Attempt + 1)
	next.Loading = true
	return next, nil
}

func reduceLoginSuccess(s Session, act LoginSuccess) (Session, error) {
	if act.Token == "" || act.User == nil {
		return s, fmt.Errorf("%w: login_success requires token and user", ErrInvalidAction)
	}
	if s.Status() != StatusAuthenticating {
		if act.Attempt != 0 && act.Attempt <= s.Attempt {
			return s, fmt.Errorf("%w: attempt %d after %s", ErrStaleAttempt, act.Attempt, s.Status())
		}
		return s, fmt.Errorf("%w: login_success from %s", ErrInvalidTransition, s.Status())
	}
	if act.Attempt != s.Attempt {
		return s, fmt.Errorf("%w: attempt %d, current %d", ErrStaleAttempt, act.Attempt, s.Attempt)
	}

	return authenticated(act.Token, act.User, s.Attempt), nil
}

func reduceLoginFailure(s Session, act LoginFailure) (Session, error) {
	if s.Status() != StatusAuthenticating {
		if act.Attempt != 0 && act.Attempt <= s.Attempt {
			return s, fmt.Errorf("%w: attempt %d after %s", ErrStaleAttempt, act.Attempt, s.Status())
		}
		return s, fmt.Errorf("%w: login_failure from %s", ErrInvalidTransition, s.Status())
	}
	if act.Attempt != s.Attempt {
		return s, fmt.Errorf("%w: attempt %d, current %d", ErrStaleAttempt, act.Attempt, s.Attempt)
	}

	return anonymous(s.Attempt), nil
}

func reduceUpdateUser(s Session, act UpdateUser) (Session, error) {
	if act.User == nil {
		return s, fmt.Errorf("%w: update_user requires user", ErrInvalidAction)
	}
	if s.Status() != StatusAuthenticated {
		return s, fmt.Errorf("%w: update_user from %s", ErrInvalidTransition, s.Status())
	}

	return authenticated(s.Token, act.User, s.Attempt), nil
}

func reduceLogout(s Session) Session {
	if s.Status() == StatusAnonymous && s.Token == "" && s.User == nil {
		return s
	}
	return anonymous(s.Attempt)
}

func reduceRehydrate(s Session, act Rehydrate) (Session, error) {
	if s.Status() != StatusAnonymous {
		return s, fmt.Errorf("%w: rehydrate from %s", ErrInvalidTransition, s.Status())
	}
	if act.Snapshot.Token == "" || act.Snapshot.User == nil {
		return s, fmt.Errorf("%w: rehydrate requires token and user", ErrInvalidAction)
	}

	return authenticated(act.Snapshot.Token, act.Snapshot.User, s.Attempt), nil
}

// anonymous and authenticated are the only constructors of reducer output, so
// IsAuthenticated can never disagree with token presence.
func anonymous(attempt uint64) Session {
	return Session{Attempt: attempt}
}

func authenticated(token string, user *User, attempt uint64) Session {
	return Session{
		Token:           token,
		User:            user.Clone(),
		IsAuthenticated: token != "",
		Attempt:         attempt,
	}
}
