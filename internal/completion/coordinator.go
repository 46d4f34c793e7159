package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/challenge-progress/internal/models"
	"github.com/terra-clan/challenge-progress/internal/progress"
)

// ErrEmptyChallengeID is returned when the id is blank after normalization
var ErrEmptyChallengeID = errors.New("challenge id is required")

// Normalizer maps challenge aliases to canonical ids
type Normalizer interface {
	Normalize(id string) string
}

// ProgressStore is the subset of the progress store the coordinator mutates
type ProgressStore interface {
	Update(ctx context.Context, fn progress.UpdateFunc) (models.UserProgress, error)
	UserID(ctx context.Context) (string, error)
	LoadPreferences(ctx context.Context) (models.UserPreferences, error)
}

// Leaderboard receives the recomputed score after a completion
type Leaderboard interface {
	Upsert(ctx context.Context, entry models.LeaderboardEntry) (bool, error)
}

// Publisher broadcasts completion events
type Publisher interface {
	Publish(ev models.CompletionEvent) int
}

// Result describes the outcome of a completion request
type Result struct {
	ChallengeID    string    `json:"challengeId"`
	NewlyCompleted bool      `json:"newlyCompleted"`
	Score          int       `json:"score"`
	Completed      int       `json:"completedChallenges"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Coordinator is the only writer of the completed set and the leaderboard.
// Calls are serialized, so completions are applied and broadcast in call order.
type Coordinator struct {
	normalizer  Normalizer
	progress    ProgressStore
	leaderboard Leaderboard
	publisher   Publisher
	now         func() time.Time

	mu sync.Mutex
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock overrides the time source used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator wires the completion pipeline
func NewCoordinator(n Normalizer, ps ProgressStore, lb Leaderboard, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		normalizer:  n,
		progress:    ps,
		leaderboard: lb,
		publisher:   pub,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeChallengeID returns the canonical id for rawID
func (c *Coordinator) NormalizeChallengeID(rawID string) string {
	return c.normalizer.Normalize(strings.TrimSpace(rawID))
}

// Complete marks the challenge identified by rawID as completed.
//
// A repeat completion leaves the completed set untouched but is still
// broadcast. When persisting the completion fails nothing is broadcast and
// the error is returned; the challenge is not reported as completed.
func (c *Coordinator) Complete(ctx context.Context, rawID string) (Result, error) {
	id := c.NormalizeChallengeID(rawID)
	if id == "" {
		return Result{}, ErrEmptyChallengeID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var newly bool
	p, err := c.progress.Update(ctx, func(p *models.UserProgress) (bool, error) {
		rewritten := p.Canonicalize(c.normalizer.Normalize)
		newly = p.MarkCompleted(id)
		return newly || rewritten, nil
	})
	if err != nil {
		return Result{ChallengeID: id}, fmt.Errorf("failed to record completion of %s: %w", id, err)
	}

	res := Result{
		ChallengeID:    id,
		NewlyCompleted: newly,
		Score:          progress.ComputeScore(p),
		Completed:      len(p.CompletedChallenges),
		CompletedAt:    c.now(),
	}

	if err := c.publishScore(ctx, p, res.Score); err != nil {
		if newly {
			res.NewlyCompleted = false
			return res, err
		}
		// the completed set is already correct; a later call retries
		slog.Warn("failed to refresh leaderboard entry",
			"challenge_id", id,
			"error", err,
		)
	}

	delivered := c.publisher.Publish(models.CompletionEvent{
		ChallengeID: id,
		CompletedAt: res.CompletedAt,
	})

	slog.Info("challenge completion",
		"challenge_id", id,
		"raw_id", rawID,
		"newly_completed", newly,
		"score", res.Score,
		"listeners", delivered,
	)

	return res, nil
}

// MarkChallengeAsCompleted is the degrading entry point used by callers that
// only need a yes/no answer: errors are logged and reported as false.
func (c *Coordinator) MarkChallengeAsCompleted(ctx context.Context, rawID string) bool {
	res, err := c.Complete(ctx, rawID)
	if err != nil {
		slog.Error("failed to complete challenge", "raw_id", rawID, "error", err)
		return false
	}
	return res.NewlyCompleted
}

// publishScore upserts the profile's leaderboard entry. Upserting an unchanged
// score is a no-op, which lets repeat completions repair a missed write.
func (c *Coordinator) publishScore(ctx context.Context, p models.UserProgress, score int) error {
	userID, err := c.progress.UserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve user id: %w", err)
	}

	prefs, err := c.progress.LoadPreferences(ctx)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	entry := models.LeaderboardEntry{
		ID:                  userID,
		Username:            prefs.Username,
		Score:               score,
		CompletedChallenges: len(p.CompletedChallenges),
		LastActive:          p.LastActive,
	}

	if _, err := c.leaderboard.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	return nil
}
