package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// AddTranslation prepends rec to the translation history, evicting the oldest
// records beyond the configured limit
func (a *Accessor) AddTranslation(ctx context.Context, rec models.TranslationRecord) (models.TranslationRecord, error) {
	rec = a.stampTranslation(rec)

	a.mu.Lock()
	defer a.mu.Unlock()

	history, err := a.loadHistory(ctx)
	if err != nil {
		return models.TranslationRecord{}, err
	}

	// re-saving the same record moves it to the front
	kept := make([]models.TranslationRecord, 0, len(history)+1)
	kept = append(kept, rec)
	for _, h := range history {
		if h.ID != rec.ID {
			kept = append(kept, h)
		}
	}
	if len(kept) > a.historyLimit {
		slog.Debug("evicting translation history",
			"evicted", len(kept)-a.historyLimit,
			"limit", a.historyLimit,
		)
		kept = kept[:a.historyLimit]
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return models.TranslationRecord{}, fmt.Errorf("failed to marshal translation history: %w", err)
	}
	if err := a.backend.Set(ctx, storage.KeyTranslationHistory, string(data)); err != nil {
		slog.Error("failed to persist translation history", "key", storage.KeyTranslationHistory, "error", err)
		return models.TranslationRecord{}, fmt.Errorf("failed to save translation history: %w", err)
	}
	return rec, nil
}

// TranslationHistory returns saved translations, newest first
func (a *Accessor) TranslationHistory(ctx context.Context) ([]models.TranslationRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadHistory(ctx)
}

// ClearTranslationHistory removes every saved translation
func (a *Accessor) ClearTranslationHistory(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backend.Remove(ctx, storage.KeyTranslationHistory); err != nil {
		return fmt.Errorf("failed to clear translation history: %w", err)
	}
	return nil
}

func (a *Accessor) loadHistory(ctx context.Context) ([]models.TranslationRecord, error) {
	raw, err := a.backend.Get(ctx, storage.KeyTranslationHistory)
	if errors.Is(err, storage.ErrNotFound) {
		return []models.TranslationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load translation history: %w", err)
	}

	var history []models.TranslationRecord
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		slog.Warn("malformed translation history, starting empty",
			"key", storage.KeyTranslationHistory,
			"error", err,
		)
		return []models.TranslationRecord{}, nil
	}
	if len(history) > a.historyLimit {
		history = history[:a.historyLimit]
	}
	return history, nil
}
