package persist

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest encryption secret NewEncrypted accepts.
const MinSecretLength = 16

const (
	sealedFormatVersion = 1
	hkdfInfo            = "goSession/persist/v1"
)

// ErrWeakSecret is returned when the encryption secret is too short to derive a key from.
var ErrWeakSecret = errors.New("persist: encryption secret must be at least 16 bytes")

// Encrypted seals values with XChaCha20-Poly1305 before handing them to the inner Backend.
// The storage key is bound as associated data, so a value copied under another key fails
// to open.
//
// The AEAD key is derived with HKDF-SHA256 from a caller-supplied secret; this package
// never ships a built-in key.
type Encrypted struct {
	inner Backend
	aead  aeadCipher
}

type aeadCipher interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewEncrypted wraps inner. secret must be at least 16 bytes.
func NewEncrypted(inner Backend, secret []byte) (*Encrypted, error) {
	if inner == nil {
		return nil, errors.New("persist: encrypted backend requires an inner backend")
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &Encrypted{inner: inner, aead: aead}, nil
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.open(key, blob)
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	blob, err := e.seal(key, value)
	if err != nil {
		return err
	}
	return e.inner.Set(ctx, key, blob)
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

func (e *Encrypted) seal(key string, plaintext []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	out := make([]byte, 1+ns, 1+ns+len(plaintext)+chacha20poly1305.Overhead)
	out[0] = sealedFormatVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, err
	}
	return e.aead.Seal(out, out[1:1+ns], plaintext, []byte(key)), nil
}

func (e *Encrypted) open(key string, blob []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	if len(blob) < 1+ns+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: sealed value too short", ErrCorruptValue)
	}
	if blob[0] != sealedFormatVersion {
		return nil, fmt.Errorf("%w: unsupported sealed format %d", ErrCorruptValue, blob[0])
	}

	plaintext, err := e.aead.Open(nil, blob[1:1+ns], blob[1+ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return plaintext, nil
}
