package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/terra-clan/challenge-progress/internal/models"
)

// ErrUnknownFamily is returned for a namespace that is not a payload family
var ErrUnknownFamily = errors.New("unknown payload family")

// Payload family namespaces inside challengeData
const (
	FamilyDatasetAnalysis = "dataset-analysis"
	FamilyTranslation     = "translation"
	FamilyBrainstorm      = "brainstorm"
	FamilySocialMedia     = "social-media"
	FamilySlideDeck       = "slide-deck"
)

var families = map[string]func() any{
	FamilyDatasetAnalysis: func() any { return &models.DatasetAnalysis{} },
	FamilyTranslation:     func() any { return &models.TranslationRecord{} },
	FamilyBrainstorm:      func() any { return &models.Brainstorm{} },
	FamilySocialMedia:     func() any { return &models.SocialMediaPost{} },
	FamilySlideDeck:       func() any { return &models.SlideDeck{} },
}

// Families returns the known family namespaces, sorted
func Families() []string {
	out := make([]string, 0, len(families))
	for name := range families {
		out = append(out, name)
	}
	return sortStrings(out)
}

// IsFamily reports whether namespace holds a typed family payload
func IsFamily(namespace string) bool {
	_, ok := families[namespace]
	return ok
}

// DecodeFamily strictly decodes raw into the family type for namespace.
// Unknown fields are rejected so typos don't silently drop data.
func DecodeFamily(namespace string, raw json.RawMessage) (any, error) {
	newValue, ok := families[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, namespace)
	}

	v := newValue()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, namespace, err)
	}
	return v, nil
}

// SaveDatasetAnalysis stores the dataset-analysis result
func (a *Accessor) SaveDatasetAnalysis(ctx context.Context, v models.DatasetAnalysis) error {
	if v.AnalyzedAt.IsZero() {
		v.AnalyzedAt = a.now()
	}
	return Save(ctx, a, FamilyDatasetAnalysis, v)
}

// LoadDatasetAnalysis returns the saved dataset-analysis result
func (a *Accessor) LoadDatasetAnalysis(ctx context.Context) (models.DatasetAnalysis, bool, error) {
	return Load[models.DatasetAnalysis](ctx, a, FamilyDatasetAnalysis)
}

// SaveBrainstorm stores the brainstorm state
func (a *Accessor) SaveBrainstorm(ctx context.Context, v models.Brainstorm) error {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = a.now()
	}
	return Save(ctx, a, FamilyBrainstorm, v)
}

// LoadBrainstorm returns the saved brainstorm state
func (a *Accessor) LoadBrainstorm(ctx context.Context) (models.Brainstorm, bool, error) {
	return Load[models.Brainstorm](ctx, a, FamilyBrainstorm)
}

// SaveSocialMediaPost stores the social-media draft
func (a *Accessor) SaveSocialMediaPost(ctx context.Context, v models.SocialMediaPost) error {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = a.now()
	}
	return Save(ctx, a, FamilySocialMedia, v)
}

// LoadSocialMediaPost returns the saved social-media draft
func (a *Accessor) LoadSocialMediaPost(ctx context.Context) (models.SocialMediaPost, bool, error) {
	return Load[models.SocialMediaPost](ctx, a, FamilySocialMedia)
}

// SaveSlideDeck stores the slide deck
func (a *Accessor) SaveSlideDeck(ctx context.Context, v models.SlideDeck) error {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = a.now()
	}
	return Save(ctx, a, FamilySlideDeck, v)
}

// LoadSlideDeck returns the saved slide deck
func (a *Accessor) LoadSlideDeck(ctx context.Context) (models.SlideDeck, bool, error) {
	return Load[models.SlideDeck](ctx, a, FamilySlideDeck)
}

// SaveTranslation prepends rec to the translation history and then stores it
// as the current translation. The two writes are not atomic: the history is
// written first, so a failed call never leaves a current translation that the
// history lacks.
func (a *Accessor) SaveTranslation(ctx context.Context, rec models.TranslationRecord) (models.TranslationRecord, error) {
	rec = a.stampTranslation(rec)
	if _, err := a.AddTranslation(ctx, rec); err != nil {
		return models.TranslationRecord{}, err
	}
	if err := Save(ctx, a, FamilyTranslation, rec); err != nil {
		return models.TranslationRecord{}, err
	}
	return rec, nil
}

// LoadTranslation returns the current translation
func (a *Accessor) LoadTranslation(ctx context.Context) (models.TranslationRecord, bool, error) {
	return Load[models.TranslationRecord](ctx, a, FamilyTranslation)
}

func (a *Accessor) stampTranslation(rec models.TranslationRecord) models.TranslationRecord {
	if rec.ID == "" {
		rec.ID = a.newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = a.now()
	}
	return rec
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
