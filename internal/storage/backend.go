package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Get when the key is absent
var ErrNotFound = errors.New("key not found")

// Backend is the durable key-value store the progress subsystem persists into.
// Values are opaque strings (JSON documents or plain ids); every write replaces
// the whole value.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any prior value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key starting with prefix, sorted
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping checks backend availability
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
