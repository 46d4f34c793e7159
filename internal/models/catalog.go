package models

// Challenge is a catalog entry describing one challenge of the hub
type Challenge struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Family      string   `json:"family,omitempty" yaml:"family"`     // payload family, e.g. "translation"
	Category    string   `json:"category,omitempty" yaml:"category"` // data | language | vision | models | creative
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases"`   // legacy ids used by older screens
}

// ChallengeStatus is a catalog entry joined with the profile's progress
type ChallengeStatus struct {
	Challenge
	State     ChallengeState `json:"state"`
	Completed bool           `json:"completed"`
}
