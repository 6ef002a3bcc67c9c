package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const minHS256KeyLength = 32

// Config controls token issuance.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Manager issues and parses session tokens. Keys are resolved once by NewManager.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any // nil for a verify-only Ed25519 manager
	verifyKey any
	now       func() time.Time
}

// ErrNoSigningKey is returned by Issue on a verify-only manager.
var ErrNoSigningKey = errors.New("token signing key not configured")

// SessionClaims are the claims carried by a session token. ID (jti) is a random UUID, so
// no two tokens issued by any Manager collide.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager. Ed25519 keys may be raw or PEM encoded;
// a missing Ed25519 private key yields a manager that can only Parse.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	m := &Manager{config: cfg, now: time.Now}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHS256KeyLength {
			return nil, fmt.Errorf("hs256 requires a key of at least %d bytes", minHS256KeyLength)
		}
		m.method = jwt.SigningMethodHS256
		m.signKey, m.verifyKey = cfg.PrivateKey, cfg.PrivateKey
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		pub, err := edKey[ed25519.PublicKey](cfg.PublicKey, ed25519.PublicKeySize, publicFromPEM)
		if err != nil {
			return nil, fmt.Errorf("ed25519 public key: %w", err)
		}
		m.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := edKey[ed25519.PrivateKey](cfg.PrivateKey, ed25519.PrivateKeySize, privateFromPEM)
			if err != nil {
				return nil, fmt.Errorf("ed25519 private key: %w", err)
			}
			m.signKey = priv
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	return m, nil
}

// Issue signs a token for subject (the user id).
func (j *Manager) Issue(subject, email string) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}

	now := j.now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.TTL)),
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	if j.signKey == nil {
		return "", ErrNoSigningKey
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.signKey)
}

// Parse verifies tokenStr and returns its claims.
func (j *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// edKey accepts a raw key of rawSize bytes or a PEM block parsed by fromPEM.
func edKey[K ed25519.PublicKey | ed25519.PrivateKey](key []byte, rawSize int, fromPEM func([]byte) (any, error)) (K, error) {
	var zero K
	if len(key) == rawSize {
		return K(key), nil
	}
	parsed, err := fromPEM(key)
	if err != nil {
		return zero, errors.New("invalid key encoding")
	}
	k, ok := parsed.(K)
	if !ok {
		return zero, fmt.Errorf("unexpected key type %T", parsed)
	}
	return k, nil
}

func publicFromPEM(b []byte) (any, error)  { return jwt.ParseEdPublicKeyFromPEM(b) }
func privateFromPEM(b []byte) (any, error) { return jwt.ParseEdPrivateKeyFromPEM(b) }
