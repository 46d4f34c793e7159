package progress

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/challenge-progress/internal/storage"
)

var errStorageDown = errors.New("storage unavailable")

// flakyBackend wraps a memory backend and fails reads or writes on demand
type flakyBackend struct {
	*storage.MemoryBackend
	failGet bool
	failSet bool
	sets    int
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", errStorageDown
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errStorageDown
	}
	f.sets++
	return f.MemoryBackend.Set(ctx, key, value)
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
