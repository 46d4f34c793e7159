package models

import "time"

// Payload family records. They are stored under challengeData and are never
// consulted for completion.

// DatasetAnalysis is the saved result of the dataset-analysis challenge
type DatasetAnalysis struct {
	Dataset    string            `json:"dataset"`
	Question   string            `json:"question,omitempty"`
	Summary    string            `json:"summary"`
	Insights   []string          `json:"insights,omitempty"`
	Columns    []string          `json:"columns,omitempty"`
	Metrics    map[string]string `json:"metrics,omitempty"`
	AnalyzedAt time.Time         `json:"analyzedAt"`
}

// TranslationRecord is one translation performed in the translation challenge
type TranslationRecord struct {
	ID             string    `json:"id"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Brainstorm is the saved state of the brainstorm challenge
type Brainstorm struct {
	Topic        string    `json:"topic"`
	Ideas        []string  `json:"ideas"`
	SelectedIdea string    `json:"selectedIdea,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SocialMediaPost is the saved draft of the social-media challenge
type SocialMediaPost struct {
	Platform  string    `json:"platform"`
	Topic     string    `json:"topic,omitempty"`
	Tone      string    `json:"tone,omitempty"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slide is a single slide of a generated deck
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// SlideDeck is the saved deck of the slide-deck challenge
type SlideDeck struct {
	Title     string    `json:"title"`
	Audience  string    `json:"audience,omitempty"`
	Slides    []Slide   `json:"slides"`
	UpdatedAt time.Time `json:"updatedAt"`
}
