package storage

// Well-known storage keys. The names match what the challenge UI has always
// written so existing browser exports can be imported unchanged.
const (
	KeyProgress           = "userProgress"
	KeyPreferences        = "ai_hub_user_preferences"
	KeyLeaderboard        = "ai_hub_leaderboard"
	KeyUserID             = "ai_hub_user_id"
	KeyTranslationHistory = "ai_hub_translation_history"

	// ChallengeBlobPrefix prefixes per-challenge blobs owned by a challenge UI
	ChallengeBlobPrefix = "challenge_"
)

// ChallengeBlobKey returns the blob key for a challenge id
func ChallengeBlobKey(challengeID string) string {
	return ChallengeBlobPrefix + challengeID
}
