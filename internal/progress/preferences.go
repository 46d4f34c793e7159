package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// ErrInvalidPreferences indicates preferences failed validation
var ErrInvalidPreferences = errors.New("invalid preferences")

var validate = validator.New()

// GenerateUsername returns a random display name of the form User_<n>
func GenerateUsername() string {
	return "User_" + strconv.Itoa(1000+rand.IntN(9000))
}

// preferencesRecord is the persisted shape; pointer fields tell missing
// values apart from explicit false.
type preferencesRecord struct {
	Username        *string `json:"username"`
	ShowLeaderboard *bool   `json:"showLeaderboard"`
	DarkMode        *bool   `json:"darkMode"`
}

// LoadPreferences returns the persisted preferences. Missing, malformed or
// blank-username records are replaced by defaults, which are persisted so the
// generated username stays stable.
func (s *Store) LoadPreferences(ctx context.Context) (models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPreferences(ctx)
}

func (s *Store) loadPreferences(ctx context.Context) (models.UserPreferences, error) {
	raw, err := s.backend.Get(ctx, storage.KeyPreferences)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.UserPreferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs := models.DefaultPreferences("")
	dirty := errors.Is(err, storage.ErrNotFound)

	if err == nil {
		var rec preferencesRecord
		if jerr := json.Unmarshal([]byte(raw), &rec); jerr != nil {
			slog.Warn("malformed preferences record, using defaults",
				"key", storage.KeyPreferences,
				"error", jerr,
			)
			dirty = true
		} else {
			if rec.Username != nil {
				prefs.Username = strings.TrimSpace(*rec.Username)
			}
			if rec.ShowLeaderboard != nil {
				prefs.ShowLeaderboard = *rec.ShowLeaderboard
			}
			if rec.DarkMode != nil {
				prefs.DarkMode = *rec.DarkMode
			}
		}
	}

	if prefs.Username == "" {
		prefs.Username = s.defaultUsername()
		dirty = true
	}

	if dirty {
		// best effort: defaults are still usable if the write fails
		if err := s.savePreferences(ctx, prefs); err != nil {
			slog.Warn("failed to persist default preferences", "error", err)
		}
	}

	return prefs, nil
}

// defaultUsername returns the same generated name until one is persisted,
// so a storage outage doesn't hand out a new name on every read
func (s *Store) defaultUsername() string {
	if s.pendingUsername == "" {
		s.pendingUsername = s.newUsername()
	}
	return s.pendingUsername
}

// SavePreferences validates and overwrites the persisted preferences.
// A blank username is replaced by a generated one.
func (s *Store) SavePreferences(ctx context.Context, prefs models.UserPreferences) (models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.Username = strings.TrimSpace(prefs.Username)
	if prefs.Username == "" {
		prefs.Username = s.defaultUsername()
	}
	if err := s.savePreferences(ctx, prefs); err != nil {
		return models.UserPreferences{}, err
	}
	return prefs, nil
}

// UpdatePreferences applies patch to the current preferences and persists them
func (s *Store) UpdatePreferences(ctx context.Context, patch models.PreferencesPatch) (models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadPreferences(ctx)
	if err != nil {
		return models.UserPreferences{}, err
	}

	updated := patch.Apply(current)
	updated.Username = strings.TrimSpace(updated.Username)
	if updated.Username == "" {
		updated.Username = s.defaultUsername()
	}

	if err := s.savePreferences(ctx, updated); err != nil {
		return models.UserPreferences{}, err
	}
	return updated, nil
}

func (s *Store) savePreferences(ctx context.Context, prefs models.UserPreferences) error {
	if err := validate.Struct(prefs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := s.backend.Set(ctx, storage.KeyPreferences, string(data)); err != nil {
		slog.Error("failed to persist preferences", "key", storage.KeyPreferences, "error", err)
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	s.pendingUsername = ""
	return nil
}
