package persist

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Backend when the key holds no value.
	ErrNotFound = errors.New("persist: key not found")
	// ErrBackendUnavailable wraps transport or medium failures of a Backend.
	ErrBackendUnavailable = errors.New("persist: backend unavailable")
	// ErrCorruptValue is returned when a stored value fails integrity checks.
	ErrCorruptValue = errors.New("persist: corrupt value")
)

// Backend is a durable key-value substrate.
//
// Get returns ErrNotFound for absent keys. Delete of an absent key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
