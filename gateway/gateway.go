package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/session"
)

// MinPasswordLength is the shortest password accepted by Validate.
const MinPasswordLength = 6

var (
	// ErrInvalidInput reports credentials rejected by client-side validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailed reports credentials rejected by the remote side.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrGatewayUnavailable reports a gateway that could not be reached after retries.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
)

// Credentials is the transient login request. It is never persisted.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Grant is a successful login response.
type Grant struct {
	Token string        `json:"token"`
	User  *session.User `json:"user"`
}

// Gateway exchanges credentials for a Grant.
type Gateway interface {
	Login(ctx context.Context, creds Credentials) (*Grant, error)
	Logout(ctx context.Context, token string) error
}

// Validate checks credentials before any network work. Failures wrap ErrInvalidInput.
// The email is taken as given: surrounding whitespace makes it malformed rather than being
// trimmed away.
func Validate(creds Credentials) error {
	switch {
	case strings.TrimSpace(creds.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	case !validEmail(creds.Email):
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	case creds.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	case len([]rune(creds.Password)) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

func validGrant(g *Grant) error {
	if g == nil || g.Token == "" || g.User == nil || g.User.ID == "" {
		return fmt.Errorf("%w: incomplete grant", ErrGatewayUnavailable)
	}
	return nil
}
