package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/terra-clan/challenge-progress/internal/storage"
)

// SaveBlob stores a challenge-owned JSON document under challenge_<id>
func (a *Accessor) SaveBlob(ctx context.Context, challengeID string, data json.RawMessage) error {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ErrEmptyNamespace
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: blob for %s is not valid JSON", ErrInvalidPayload, challengeID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backend.Set(ctx, storage.ChallengeBlobKey(challengeID), string(data)); err != nil {
		return fmt.Errorf("failed to save blob %s: %w", challengeID, err)
	}
	return nil
}

// LoadBlob returns the blob stored for challengeID
func (a *Accessor) LoadBlob(ctx context.Context, challengeID string) (json.RawMessage, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.backend.Get(ctx, storage.ChallengeBlobKey(strings.TrimSpace(challengeID)))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load blob %s: %w", challengeID, err)
	}
	return json.RawMessage(raw), true, nil
}

// DeleteBlob removes the blob stored for challengeID
func (a *Accessor) DeleteBlob(ctx context.Context, challengeID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backend.Remove(ctx, storage.ChallengeBlobKey(strings.TrimSpace(challengeID))); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", challengeID, err)
	}
	return nil
}

// Blobs lists the challenge ids that have a stored blob
func (a *Accessor) Blobs(ctx context.Context) ([]string, error) {
	keys, err := a.backend.Keys(ctx, storage.ChallengeBlobPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, storage.ChallengeBlobPrefix))
	}
	return ids, nil
}
