package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// DefaultSize is the number of entries kept when no size is configured
const DefaultSize = 100

// ErrEmptyID is returned when an entry has no user id
var ErrEmptyID = errors.New("leaderboard entry id is required")

// Store keeps a ranked, size-bounded list of per-user scores under a single
// storage key. Entries are only ever replaced by a strictly higher score.
type Store struct {
	backend storage.Backend
	size    int

	mu sync.Mutex
}

// NewStore creates a leaderboard store keeping at most size entries
func NewStore(backend storage.Backend, size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{
		backend: backend,
		size:    size,
	}
}

// Size returns the maximum number of stored entries
func (s *Store) Size() int {
	return s.size
}

// Upsert inserts entry, or replaces the stored entry with the same id when
// entry.Score is strictly greater. The list is then re-sorted and truncated.
// Returns true if the stored list changed and the entry is still in it.
func (s *Store) Upsert(ctx context.Context, entry models.LeaderboardEntry) (bool, error) {
	if entry.ID == "" {
		return false, ErrEmptyID
	}
	if entry.Score < 0 {
		entry.Score = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	idx := indexOf(entries, entry.ID)
	switch {
	case idx < 0:
		entries = append(entries, entry)
	case entry.Score > entries[idx].Score:
		entries[idx] = entry
	default:
		return false, nil
	}

	entries = s.normalize(entries)
	if indexOf(entries, entry.ID) < 0 {
		slog.Debug("leaderboard entry fell outside the kept range",
			"user_id", entry.ID,
			"score", entry.Score,
			"size", s.size,
		)
	}

	if err := s.save(ctx, entries); err != nil {
		return false, err
	}
	return indexOf(entries, entry.ID) >= 0, nil
}

// List returns the stored entries, sorted descending by score
func (s *Store) List(ctx context.Context) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Ranked returns up to limit entries with their 1-based rank. limit <= 0
// returns every stored entry.
func (s *Store) Ranked(ctx context.Context, limit int) ([]models.RankedEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	ranked := make([]models.RankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = models.RankedEntry{Rank: i + 1, LeaderboardEntry: e}
	}
	return ranked, nil
}

// RankOf returns the 1-based rank of id, or false if it is not in the stored list
func (s *Store) RankOf(ctx context.Context, id string) (int, bool, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, false, err
	}
	idx := indexOf(entries, id)
	if idx < 0 {
		return 0, false, nil
	}
	return idx + 1, true, nil
}

// Get returns the stored entry for id
func (s *Store) Get(ctx context.Context, id string) (models.LeaderboardEntry, bool, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return models.LeaderboardEntry{}, false, err
	}
	idx := indexOf(entries, id)
	if idx < 0 {
		return models.LeaderboardEntry{}, false, nil
	}
	return entries[idx], true, nil
}

// Clear removes every entry. Only the full data wipe uses this.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx, storage.KeyLeaderboard); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	slog.Info("leaderboard cleared")
	return nil
}

func (s *Store) load(ctx context.Context) ([]models.LeaderboardEntry, error) {
	raw, err := s.backend.Get(ctx, storage.KeyLeaderboard)
	if errors.Is(err, storage.ErrNotFound) {
		return []models.LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.Warn("malformed leaderboard, starting empty",
			"key", storage.KeyLeaderboard,
			"error", err,
		)
		return []models.LeaderboardEntry{}, nil
	}

	return s.normalize(entries), nil
}

func (s *Store) save(ctx context.Context, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}

	if err := s.backend.Set(ctx, storage.KeyLeaderboard, string(data)); err != nil {
		slog.Error("failed to persist leaderboard", "key", storage.KeyLeaderboard, "error", err)
		return fmt.Errorf("failed to save leaderboard: %w", err)
	}
	return nil
}

// normalize drops entries without an id, keeps the best score per id, sorts
// descending by score and truncates to the configured size. Equal scores keep
// their existing relative order.
func (s *Store) normalize(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	best := make(map[string]int, len(entries))
	out := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if e.Score < 0 {
			e.Score = 0
		}
		if i, ok := best[e.ID]; ok {
			if e.Score > out[i].Score {
				out[i] = e
			}
			continue
		}
		best[e.ID] = len(out)
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if len(out) > s.size {
		out = out[:s.size]
	}
	return out
}

func indexOf(entries []models.LeaderboardEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
