package storage

import (
	"context"
	"strings"
)

// PrefixedBackend scopes every key of an underlying backend under a fixed
// prefix, giving several profiles logical separation inside one store
type PrefixedBackend struct {
	inner  Backend
	prefix string
}

// WithPrefix wraps b so that all keys are stored as prefix+key.
// An empty prefix returns b unchanged.
func WithPrefix(b Backend, prefix string) Backend {
	if prefix == "" {
		return b
	}
	return &PrefixedBackend{inner: b, prefix: prefix}
}

func (p *PrefixedBackend) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixedBackend) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *PrefixedBackend) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

func (p *PrefixedBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.inner.Keys(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.prefix)
	}
	return keys, nil
}

func (p *PrefixedBackend) Ping(ctx context.Context) error {
	return p.inner.Ping(ctx)
}

func (p *PrefixedBackend) Close() error {
	return p.inner.Close()
}
