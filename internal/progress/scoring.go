package progress

import "github.com/terra-clan/challenge-progress/internal/models"

// Scoring weights
const (
	PointsPerChallenge = 100
	VarietyBonus       = 50
)

// ComputeScore returns the leaderboard score for a progress snapshot:
// 100 per completed challenge plus a 50 point variety bonus per distinct
// challenge. The completed set is already unique, so the result is 150 per
// challenge; the two terms are kept separate to preserve published scores.
func ComputeScore(p models.UserProgress) int {
	distinct := make(map[string]struct{}, len(p.CompletedChallenges))
	for _, id := range p.CompletedChallenges {
		distinct[id] = struct{}{}
	}
	return PointsPerChallenge*len(p.CompletedChallenges) + VarietyBonus*len(distinct)
}
