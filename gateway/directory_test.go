package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapHasher(t *testing.T, timeCost uint32) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        timeCost,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return h
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "gosession-test",
	})
	require.NoError(t, err)

	d := NewDirectory(cheapHasher(t, 1), tokens)
	_, err = d.Register(session.User{Email: "jane.doe@test.com"}, "correct-horse")
	require.NoError(t, err)
	return d
}

func TestDirectoryLogin(t *testing.T) {
	d := newTestDirectory(t)

	grant, err := d.Login(context.Background(), Credentials{Email: "Jane.Doe@TEST.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Token)
	assert.Equal(t, "jane.doe@test.com", grant.User.Email)
	assert.Equal(t, "Jane Doe", grant.User.Name)
	assert.Equal(t, DefaultRole, grant.User.Role)
	assert.Len(t, grant.User.ID, 26)

	claims, err := d.tokens.Parse(grant.Token)
	require.NoError(t, err)
	assert.Equal(t, grant.User.ID, claims.Subject)
}

func TestDirectoryRejects(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Login(ctx, Credentials{Email: "jane.doe@test.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = d.Login(ctx, Credentials{Email: "nobody@test.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = d.Login(ctx, Credentials{Email: "jane.doe@test.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDirectoryRegisterDuplicate(t *testing.T) {
	d := newTestDirectory(t)

	_, err := d.Register(session.User{Email: "JANE.DOE@test.com"}, "another-pass")
	assert.ErrorIs(t, err, ErrAccountExists)

	_, err = d.Register(session.User{Email: "broken"}, "another-pass")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDirectoryLogoutRevokes(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	grant, err := d.Login(ctx, Credentials{Email: "jane.doe@test.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.False(t, d.Revoked(grant.Token))

	require.NoError(t, d.Logout(ctx, grant.Token))
	assert.True(t, d.Revoked(grant.Token))
	assert.ErrorIs(t, d.Logout(ctx, grant.Token), ErrAuthenticationFailed)
	assert.ErrorIs(t, d.Logout(ctx, "not-a-token"), ErrAuthenticationFailed)
}

func TestDirectoryUpgradesWeakHash(t *testing.T) {
	d := newTestDirectory(t)
	before := d.accounts["jane.doe@test.com"].hash

	d.hasher = cheapHasher(t, 2)
	_, err := d.Login(context.Background(), Credentials{Email: "jane.doe@test.com", Password: "correct-horse"})
	require.NoError(t, err)

	after := d.accounts["jane.doe@test.com"].hash
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "t=2")
}
