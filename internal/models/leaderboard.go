package models

import "time"

// LeaderboardEntry is one ranked row of the leaderboard, keyed by the stable user id
type LeaderboardEntry struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Score               int       `json:"score"`
	CompletedChallenges int       `json:"completedChallenges"`
	LastActive          time.Time `json:"lastActive"`
}

// RankedEntry is a leaderboard entry with its 1-based position
type RankedEntry struct {
	Rank int `json:"rank"`
	LeaderboardEntry
}

// CompletionEvent is broadcast every time a challenge completion is requested,
// including repeat completions of an already completed challenge
type CompletionEvent struct {
	ChallengeID string    `json:"challengeId"`
	CompletedAt time.Time `json:"completedAt"`
}
