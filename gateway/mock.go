package gateway

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/oklog/ulid/v2"
)

const (
	// FailingEmail is the address the mock gateway always rejects.
	FailingEmail = "fail@test.com"
	// DefaultLatency is the simulated login round trip.
	DefaultLatency = time.Second
	// DefaultRole is assigned to every mock user.
	DefaultRole = "customer"
)

// Mock is an in-process Gateway that simulates network latency.
type Mock struct {
	// Latency delays every Login after validation. Zero means no delay.
	Latency time.Duration
	// LogoutLatency delays every Logout.
	LogoutLatency time.Duration
	// Reject lists additional addresses (case-insensitive) rejected with ErrAuthenticationFailed.
	Reject []string

	tokens *jwt.Manager
	now    func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewMock returns a Mock with DefaultLatency that mints tokens with tokens.
func NewMock(tokens *jwt.Manager) *Mock {
	return &Mock{
		Latency:       DefaultLatency,
		LogoutLatency: DefaultLatency / 2,
		tokens:        tokens,
		now:           time.Now,
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}
}

// Login validates creds, waits Latency, then returns a fresh token and profile.
func (m *Mock) Login(ctx context.Context, creds Credentials) (*Grant, error) {
	if err := Validate(creds); err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.Latency); err != nil {
		return nil, err
	}

	email := creds.Email
	if m.rejected(email) {
		return nil, fmt.Errorf("%w: credentials rejected", ErrAuthenticationFailed)
	}

	now := m.now().UTC()
	user := &session.User{
		ID:        m.newID(now),
		Name:      displayName(email),
		Email:     email,
		Role:      DefaultRole,
		CreatedAt: now.Truncate(time.Millisecond),
	}

	token, err := m.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return &Grant{Token: token, User: user}, nil
}

// Logout waits LogoutLatency and succeeds unless ctx is done first.
func (m *Mock) Logout(ctx context.Context, _ string) error {
	return sleep(ctx, m.LogoutLatency)
}

func (m *Mock) rejected(email string) bool {
	if strings.EqualFold(email, FailingEmail) {
		return true
	}
	for _, r := range m.Reject {
		if strings.EqualFold(email, r) {
			return true
		}
	}
	return false
}

func (m *Mock) newID(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), m.entropy).String()
}

// displayName turns "jane.doe@x" into "Jane Doe".
func displayName(email string) string {
	local := email[:strings.LastIndexByte(email, '@')]
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	if len(parts) == 0 {
		return local
	}
	return strings.Join(parts, " ")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
