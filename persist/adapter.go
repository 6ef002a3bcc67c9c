package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/samber/oops"
)

var (
	// ErrStorageRead classifies read failures. Adapter.Load never returns it; it only
	// appears in logs.
	ErrStorageRead = errors.New("storage read failed")
	// ErrStorageWrite is returned by Adapter.Save when the medium rejects a write.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageDelete is returned by Adapter.Remove when the medium rejects a delete.
	ErrStorageDelete = errors.New("storage delete failed")
)

// Adapter applies the persistence failure policy on top of a Backend.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
}

// NewAdapter returns an Adapter over backend. A nil logger discards read-failure logs.
func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		logger:  logging.OrDiscard(logger),
	}
}

// Save writes value under key. Failures are returned wrapped in ErrStorageWrite.
func (a *Adapter) Save(ctx context.Context, key string, value []byte) error {
	if err := a.backend.Set(ctx, key, value); err != nil {
		return oops.
			In("persist").
			Code("storage_write").
			With("key", key).
			Wrap(fmt.Errorf("%w: %w", ErrStorageWrite, err))
	}
	return nil
}

// Load returns the value under key. Absent keys and read errors both yield ok=false with a
// nil error, and read errors are logged. A value that fails integrity checks is the one
// error Load reports: it wraps ErrCorruptValue so the caller can discard the key.
func (a *Adapter) Load(ctx context.Context, key string) (value []byte, ok bool, err error) {
	data, err := a.backend.Get(ctx, key)
	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, ErrNotFound):
		return nil, false, nil
	case errors.Is(err, ErrCorruptValue):
		return nil, false, oops.
			In("persist").
			Code("storage_corrupt").
			With("key", key).
			Wrap(err)
	}

	logging.LogWarn(a.logger, "persisted state unreadable; continuing without it",
		oops.
			In("persist").
			Code("storage_read").
			With("key", key).
			Wrap(fmt.Errorf("%w: %w", ErrStorageRead, err)),
	)
	return nil, false, nil
}

// Remove deletes key. An absent key is success; other failures are wrapped in ErrStorageDelete.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil {
		return oops.
			In("persist").
			Code("storage_delete").
			With("key", key).
			Wrap(fmt.Errorf("%w: %w", ErrStorageDelete, err))
	}
	return nil
}
