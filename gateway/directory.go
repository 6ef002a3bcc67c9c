package gateway

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/oklog/ulid/v2"
)

// ErrAccountExists is returned by Register for an address already on file.
var ErrAccountExists = errors.New("account already registered")

type account struct {
	user session.User
	hash string
}

// Directory is an in-process Gateway over a table of registered accounts. Passwords are
// stored as Argon2id hashes and upgraded on login when the hasher's parameters grow.
// Logout revokes the token's id until the token would have expired anyway.
type Directory struct {
	hasher *password.Hasher
	tokens *jwt.Manager
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]*account // by lower-cased email
	revoked  map[string]time.Time
	entropy  *ulid.MonotonicEntropy
	decoy    string
}

// NewDirectory returns an empty Directory.
func NewDirectory(hasher *password.Hasher, tokens *jwt.Manager) *Directory {
	return &Directory{
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
		accounts: make(map[string]*account),
		revoked:  make(map[string]time.Time),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Register adds an account. Name and Role default the same way the mock gateway fills them.
func (d *Directory) Register(user session.User, plaintext string) (*session.User, error) {
	if err := Validate(Credentials{Email: user.Email, Password: plaintext}); err != nil {
		return nil, err
	}
	hash, err := d.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := d.accounts[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, user.Email)
	}

	now := d.now().UTC()
	if user.ID == "" {
		user.ID = ulid.MustNew(ulid.Timestamp(now), d.entropy).String()
	}
	if user.Name == "" {
		user.Name = displayName(user.Email)
	}
	if user.Role == "" {
		user.Role = DefaultRole
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now.Truncate(time.Millisecond)
	}
	if d.decoy == "" {
		d.decoy = hash
	}
	d.accounts[key] = &account{user: user, hash: hash}
	out := user
	return &out, nil
}

// Login verifies creds against the stored hash.
func (d *Directory) Login(ctx context.Context, creds Credentials) (*Grant, error) {
	if err := Validate(creds); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := strings.ToLower(creds.Email)
	d.mu.RLock()
	acct, ok := d.accounts[key]
	decoy := d.decoy
	var hash string
	var user session.User
	if ok {
		hash, user = acct.hash, acct.user
	}
	d.mu.RUnlock()

	if !ok {
		// unknown addresses cost the same KDF pass as a wrong password
		if decoy != "" {
			_, _ = d.hasher.Verify(creds.Password, decoy)
		}
		return nil, fmt.Errorf("%w: credentials rejected", ErrAuthenticationFailed)
	}

	match, err := d.hasher.Verify(creds.Password, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !match {
		return nil, fmt.Errorf("%w: credentials rejected", ErrAuthenticationFailed)
	}
	d.upgrade(key, hash, creds.Password)

	token, err := d.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return &Grant{Token: token, User: &user}, nil
}

// Logout revokes token. Tokens that fail verification are rejected with ErrAuthenticationFailed.
func (d *Directory) Logout(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	claims, err := d.tokens.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.revoked {
		if now.After(until) {
			delete(d.revoked, id)
		}
	}
	if _, done := d.revoked[claims.ID]; done {
		return fmt.Errorf("%w: token already revoked", ErrAuthenticationFailed)
	}
	d.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

// Revoked reports whether token was logged out.
func (d *Directory) Revoked(token string) bool {
	claims, err := d.tokens.Parse(token)
	if err != nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.revoked[claims.ID]
	return ok
}

func (d *Directory) upgrade(key, hash, plaintext string) {
	need, err := d.hasher.NeedsRehash(hash)
	if err != nil || !need {
		return
	}
	fresh, err := d.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct, ok := d.accounts[key]; ok && acct.hash == hash {
		acct.hash = fresh
	}
}
