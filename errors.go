package goSession

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/persist"
	"github.com/MrEthical07/goSession/rehydrate"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrNotReady is returned by session operations before Start has settled rehydration.
	ErrNotReady = errors.New("client not ready")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client closed")

	// ErrInvalidInput reports credentials rejected by client-side validation.
	ErrInvalidInput = gateway.ErrInvalidInput
	// ErrAuthenticationFailed reports credentials rejected by the gateway.
	ErrAuthenticationFailed = gateway.ErrAuthenticationFailed
	// ErrGatewayUnavailable reports a gateway that could not be reached.
	ErrGatewayUnavailable = gateway.ErrGatewayUnavailable
	// ErrTooManyAttempts is returned by Login while an email is throttled.
	ErrTooManyAttempts = rate.ErrRateLimited

	// ErrStorageRead classifies persisted-state read failures. It is logged, never returned.
	ErrStorageRead = persist.ErrStorageRead
	// ErrStorageWrite is returned when the session slice could not be saved.
	ErrStorageWrite = persist.ErrStorageWrite
	// ErrStorageDelete is returned when the session slice could not be removed.
	ErrStorageDelete = persist.ErrStorageDelete
	// ErrCorruptValue is recorded in the Outcome when the stored slice fails decryption.
	ErrCorruptValue = persist.ErrCorruptValue

	// ErrRehydrationTimeout is recorded in the Outcome when restore exceeds its timeout.
	ErrRehydrationTimeout = rehydrate.ErrRehydrationTimeout

	ErrInvalidTransition = session.ErrInvalidTransition
	ErrLoginInProgress   = session.ErrLoginInProgress
	ErrStaleAttempt      = session.ErrStaleAttempt
	ErrInvalidAction     = session.ErrInvalidAction
	ErrCorruptSnapshot   = session.ErrCorruptSnapshot
)

// DisplayMessage returns a short user-facing message for an error returned by Login,
// Logout or UpdateUser. It returns "" for nil.
func DisplayMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return invalidInputMessage(err)
	case errors.Is(err, ErrAuthenticationFailed):
		return "Invalid email or password."
	case errors.Is(err, ErrTooManyAttempts):
		return "Too many sign-in attempts. Please wait a few minutes and try again."
	case errors.Is(err, ErrLoginInProgress):
		return "Sign-in is already in progress."
	case errors.Is(err, ErrGatewayUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return "Unable to reach the server. Please try again."
	case errors.Is(err, ErrStorageWrite):
		return "Signed in, but the session could not be saved on this device."
	case errors.Is(err, ErrStorageDelete):
		return "Signed out, but saved session data could not be removed from this device."
	case errors.Is(err, ErrNotReady):
		return "Still loading. Please wait a moment."
	case errors.Is(err, ErrStaleAttempt),
		errors.Is(err, context.Canceled):
		return "Sign-in was cancelled."
	default:
		return "Something went wrong. Please try again."
	}
}

func invalidInputMessage(err error) string {
	msg := err.Error()
	prefix := ErrInvalidInput.Error() + ": "
	i := strings.Index(msg, prefix)
	if i < 0 {
		return "Please check your email and password."
	}
	reason := []rune(msg[i+len(prefix):])
	if len(reason) == 0 {
		return "Please check your email and password."
	}
	reason[0] = unicode.ToUpper(reason[0])
	return string(reason) + "."
}
