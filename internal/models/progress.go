package models

import (
	"encoding/json"
	"time"
)

// ChallengeState represents the per-challenge completion state
type ChallengeState string

const (
	StateNotStarted ChallengeState = "not_started"
	StateCompleted  ChallengeState = "completed"
)

// IsTerminal returns true if no further transition is possible through completion
func (s ChallengeState) IsTerminal() bool {
	return s == StateCompleted
}

// UserProgress is the single progress record persisted per profile.
// CompletedChallenges holds canonical challenge ids, each at most once.
// ChallengeData is owned by the challenge UIs; the core never interprets it.
type UserProgress struct {
	CompletedChallenges []string                   `json:"completedChallenges"`
	ChallengeData       map[string]json.RawMessage `json:"challengeData"`
	LastActive          time.Time                  `json:"lastActive"`
}

// NewUserProgress returns the default empty progress record
func NewUserProgress(now time.Time) UserProgress {
	return UserProgress{
		CompletedChallenges: []string{},
		ChallengeData:       map[string]json.RawMessage{},
		LastActive:          now,
	}
}

// State returns the completion state of a canonical challenge id
func (p *UserProgress) State(id string) ChallengeState {
	if p.HasCompleted(id) {
		return StateCompleted
	}
	return StateNotStarted
}

// HasCompleted reports whether id is in the completed set
func (p *UserProgress) HasCompleted(id string) bool {
	for _, c := range p.CompletedChallenges {
		if c == id {
			return true
		}
	}
	return false
}

// MarkCompleted adds id to the completed set. Returns false if it was already there.
func (p *UserProgress) MarkCompleted(id string) bool {
	if p.HasCompleted(id) {
		return false
	}
	p.CompletedChallenges = append(p.CompletedChallenges, id)
	return true
}

// Sanitize fills nil collections and drops duplicate or empty ids left by older writers.
// Returns true if anything was changed.
func (p *UserProgress) Sanitize() bool {
	changed := false
	if p.ChallengeData == nil {
		p.ChallengeData = map[string]json.RawMessage{}
	}
	if p.CompletedChallenges == nil {
		p.CompletedChallenges = []string{}
		return false
	}

	seen := make(map[string]struct{}, len(p.CompletedChallenges))
	unique := p.CompletedChallenges[:0]
	for _, id := range p.CompletedChallenges {
		if id == "" {
			changed = true
			continue
		}
		if _, dup := seen[id]; dup {
			changed = true
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	p.CompletedChallenges = unique
	return changed
}

// Canonicalize maps every completed id through normalize and drops the
// duplicates that aliases written by older screens leave behind.
// Returns true if the set was rewritten.
func (p *UserProgress) Canonicalize(normalize func(string) string) bool {
	changed := false
	for i, id := range p.CompletedChallenges {
		if canonical := normalize(id); canonical != id {
			p.CompletedChallenges[i] = canonical
			changed = true
		}
	}
	return p.Sanitize() || changed
}

// Clone returns a deep copy so callers can't mutate a stored snapshot
func (p UserProgress) Clone() UserProgress {
	out := UserProgress{
		CompletedChallenges: make([]string, len(p.CompletedChallenges)),
		ChallengeData:       make(map[string]json.RawMessage, len(p.ChallengeData)),
		LastActive:          p.LastActive,
	}
	copy(out.CompletedChallenges, p.CompletedChallenges)
	for k, v := range p.ChallengeData {
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		out.ChallengeData[k] = raw
	}
	return out
}
