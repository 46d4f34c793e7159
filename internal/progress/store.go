package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// UpdateFunc mutates a loaded progress record in place and reports whether it
// changed. Unchanged records are not written back.
type UpdateFunc func(p *models.UserProgress) (changed bool, err error)

// Store persists the profile's progress record, preferences and stable user id.
// Every mutation reads the full record, changes it and writes the full record
// back while holding mu, so writers inside one process never interleave.
type Store struct {
	backend     storage.Backend
	now         func() time.Time
	newUsername func() string
	newUserID   func() string
	normalize   func(string) string

	mu sync.Mutex
	// pendingUsername is the generated default name kept until it is persisted
	pendingUsername string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithUsernameGenerator overrides how default usernames are generated
func WithUsernameGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newUsername = fn
	}
}

// WithUserIDGenerator overrides how the stable user id is generated
func WithUserIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newUserID = fn
	}
}

// WithNormalizer canonicalizes completed ids as records are read
func WithNormalizer(fn func(string) string) Option {
	return func(s *Store) {
		s.normalize = fn
	}
}

// NewStore creates a progress store over backend
func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		now:         func() time.Time { return time.Now().UTC() },
		newUsername: GenerateUsername,
		newUserID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// progressRecord is the persisted shape. lastActive is decoded separately so a
// bad timestamp doesn't discard the completed set.
type progressRecord struct {
	CompletedChallenges []string                   `json:"completedChallenges"`
	ChallengeData       map[string]json.RawMessage `json:"challengeData"`
	LastActive          string                     `json:"lastActive"`
}

// Load returns the persisted progress, or the default record when it is absent
// or malformed. Only backend failures are returned as errors.
func (s *Store) Load(ctx context.Context) (models.UserProgress, error) {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (models.UserProgress, error) {
	raw, err := s.backend.Get(ctx, storage.KeyProgress)
	if errors.Is(err, storage.ErrNotFound) {
		return models.NewUserProgress(s.now()), nil
	}
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to load progress: %w", err)
	}

	var rec progressRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		slog.Warn("malformed progress record, using defaults",
			"key", storage.KeyProgress,
			"error", err,
		)
		return models.NewUserProgress(s.now()), nil
	}

	p := models.UserProgress{
		CompletedChallenges: rec.CompletedChallenges,
		ChallengeData:       rec.ChallengeData,
	}
	if rec.LastActive != "" {
		if ts, err := time.Parse(time.RFC3339Nano, rec.LastActive); err == nil {
			p.LastActive = ts
		} else {
			slog.Warn("malformed lastActive in progress record", "value", rec.LastActive, "error", err)
		}
	}
	if p.LastActive.IsZero() {
		p.LastActive = s.now()
	}

	if p.Sanitize() {
		slog.Warn("progress record contained duplicate or empty challenge ids",
			"key", storage.KeyProgress,
			"completed", len(p.CompletedChallenges),
		)
	}
	if s.normalize != nil && p.Canonicalize(s.normalize) {
		slog.Warn("progress record contained challenge aliases",
			"key", storage.KeyProgress,
			"completed", len(p.CompletedChallenges),
		)
	}

	return p, nil
}

// Save overwrites the persisted progress record. Callers refresh LastActive.
func (s *Store) Save(ctx context.Context, p models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, p)
}

func (s *Store) save(ctx context.Context, p models.UserProgress) error {
	p = p.Clone()
	p.Sanitize()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := s.backend.Set(ctx, storage.KeyProgress, string(data)); err != nil {
		slog.Error("failed to persist progress", "key", storage.KeyProgress, "error", err)
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Update runs fn against the current record and persists the result if fn
// reports a change, refreshing LastActive. The returned record is what is
// stored after the call.
func (s *Store) Update(ctx context.Context, fn UpdateFunc) (models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(ctx)
	if err != nil {
		return models.UserProgress{}, err
	}

	changed, err := fn(&p)
	if err != nil {
		return models.UserProgress{}, err
	}
	if !changed {
		return p, nil
	}

	p.LastActive = s.now()
	if err := s.save(ctx, p); err != nil {
		return models.UserProgress{}, err
	}
	return p, nil
}

// UserID returns the stable profile id, generating and persisting it on first use
func (s *Store) UserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.backend.Get(ctx, storage.KeyUserID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to load user id: %w", err)
	}

	id = s.newUserID()
	if err := s.backend.Set(ctx, storage.KeyUserID, id); err != nil {
		slog.Error("failed to persist user id", "error", err)
		return "", fmt.Errorf("failed to save user id: %w", err)
	}

	slog.Info("generated user id", "user_id", id)
	return id, nil
}

// Reset clears progress, preferences, translation history and every
// per-challenge blob. The stable user id and the leaderboard are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []string{storage.KeyProgress, storage.KeyPreferences, storage.KeyTranslationHistory}

	blobs, err := s.backend.Keys(ctx, storage.ChallengeBlobPrefix)
	if err != nil {
		return fmt.Errorf("failed to list challenge blobs: %w", err)
	}
	keys = append(keys, blobs...)

	s.pendingUsername = ""

	var errs []error
	for _, key := range keys {
		if err := s.backend.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("user data reset", "keys_removed", len(keys))
	return nil
}
