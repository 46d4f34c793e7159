package models

// UserPreferences holds per-profile display settings
type UserPreferences struct {
	Username        string `json:"username" validate:"required,max=40"`
	ShowLeaderboard bool   `json:"showLeaderboard"`
	DarkMode        bool   `json:"darkMode"`
}

// DefaultPreferences returns preferences with default values for the given username
func DefaultPreferences(username string) UserPreferences {
	return UserPreferences{
		Username:        username,
		ShowLeaderboard: true,
		DarkMode:        false,
	}
}

// PreferencesPatch describes a partial preferences update; nil fields are left untouched
type PreferencesPatch struct {
	Username        *string `json:"username,omitempty"`
	ShowLeaderboard *bool   `json:"showLeaderboard,omitempty"`
	DarkMode        *bool   `json:"darkMode,omitempty"`
}

// Apply returns a copy of prefs with the patch applied
func (p PreferencesPatch) Apply(prefs UserPreferences) UserPreferences {
	if p.Username != nil {
		prefs.Username = *p.Username
	}
	if p.ShowLeaderboard != nil {
		prefs.ShowLeaderboard = *p.ShowLeaderboard
	}
	if p.DarkMode != nil {
		prefs.DarkMode = *p.DarkMode
	}
	return prefs
}
