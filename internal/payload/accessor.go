package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/progress"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

var (
	// ErrEmptyNamespace is returned when a payload namespace is blank
	ErrEmptyNamespace = errors.New("payload namespace is required")

	// ErrInvalidPayload is returned when a payload is not valid JSON or does
	// not match its family's shape
	ErrInvalidPayload = errors.New("invalid payload")
)

// DefaultHistoryLimit is the number of translations kept when none is configured
const DefaultHistoryLimit = 50

// ProgressStore is the subset of the progress store payloads are written through
type ProgressStore interface {
	Load(ctx context.Context) (models.UserProgress, error)
	Update(ctx context.Context, fn progress.UpdateFunc) (models.UserProgress, error)
}

// Accessor reads and writes challenge-owned payloads. Payloads live in the
// progress record's challengeData, or under their own storage key for
// translation history and per-challenge blobs. It never changes the
// completed set.
type Accessor struct {
	progress     ProgressStore
	backend      storage.Backend
	historyLimit int
	now          func() time.Time
	newID        func() string

	mu sync.Mutex // guards the history and blob keys
}

// Option configures an Accessor
type Option func(*Accessor)

// WithHistoryLimit sets how many translation records are kept
func WithHistoryLimit(n int) Option {
	return func(a *Accessor) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) {
		a.now = now
	}
}

// WithIDGenerator overrides how translation record ids are generated
func WithIDGenerator(fn func() string) Option {
	return func(a *Accessor) {
		a.newID = fn
	}
}

// NewAccessor creates a payload accessor
func NewAccessor(ps ProgressStore, backend storage.Backend, opts ...Option) *Accessor {
	a := &Accessor{
		progress:     ps,
		backend:      backend,
		historyLimit: DefaultHistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SaveRaw stores data under challengeData[namespace]
func (a *Accessor) SaveRaw(ctx context.Context, namespace string, data json.RawMessage) error {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: namespace %s is not valid JSON", ErrInvalidPayload, namespace)
	}

	compact := new(bytes.Buffer)
	if err := json.Compact(compact, data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	value := json.RawMessage(compact.Bytes())

	_, err := a.progress.Update(ctx, func(p *models.UserProgress) (bool, error) {
		if bytes.Equal(p.ChallengeData[namespace], value) {
			return false, nil
		}
		p.ChallengeData[namespace] = value
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save payload %s: %w", namespace, err)
	}
	return nil
}

// LoadRaw returns the payload stored under namespace
func (a *Accessor) LoadRaw(ctx context.Context, namespace string) (json.RawMessage, bool, error) {
	p, err := a.progress.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load payload %s: %w", namespace, err)
	}
	raw, ok := p.ChallengeData[strings.TrimSpace(namespace)]
	return raw, ok, nil
}

// Delete removes the payload stored under namespace
func (a *Accessor) Delete(ctx context.Context, namespace string) error {
	namespace = strings.TrimSpace(namespace)
	_, err := a.progress.Update(ctx, func(p *models.UserProgress) (bool, error) {
		if _, ok := p.ChallengeData[namespace]; !ok {
			return false, nil
		}
		delete(p.ChallengeData, namespace)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete payload %s: %w", namespace, err)
	}
	return nil
}

// Namespaces lists the namespaces that currently hold a payload
func (a *Accessor) Namespaces(ctx context.Context) ([]string, error) {
	p, err := a.progress.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payloads: %w", err)
	}
	out := make([]string, 0, len(p.ChallengeData))
	for ns := range p.ChallengeData {
		out = append(out, ns)
	}
	return sortStrings(out), nil
}

// Save encodes v as JSON and stores it under namespace
func Save[T any](ctx context.Context, a *Accessor, namespace string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload %s: %w", namespace, err)
	}
	return a.SaveRaw(ctx, namespace, data)
}

// Load decodes the payload stored under namespace into a T. A payload that no
// longer decodes is reported as absent.
func Load[T any](ctx context.Context, a *Accessor, namespace string) (T, bool, error) {
	var v T
	raw, ok, err := a.LoadRaw(ctx, namespace)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("malformed payload, ignoring",
			"namespace", namespace,
			"error", err,
		)
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}
