package challenge

import (
	"errors"
	"fmt"
	"sort"
)

// ErrAliasCycle is returned when alias resolution never reaches a canonical id
var ErrAliasCycle = errors.New("challenge alias cycle")

// builtinAliases maps identifiers used by older screens to the canonical id
// each challenge is stored under. Keep canonical ids stable: completed sets
// already persisted in user storage reference them.
var builtinAliases = map[string]string{
	"challenge-dictation-wizard": "challenge-1",
	"dictation-wizard":           "challenge-1",
	"dictation":                  "challenge-1",

	"challenge-data-analysis":  "challenge-2",
	"challenge-dataset-wizard": "challenge-2",
	"dataset-analysis":         "challenge-2",

	"challenge-translation":        "challenge-3",
	"challenge-translation-wizard": "challenge-3",
	"translation":                  "challenge-3",

	"challenge-model-comparison": "challenge-4",
	"model-comparison":           "challenge-4",

	"challenge-image-generation": "challenge-5",
	"image-generator":            "challenge-5",

	"challenge-ocr-wizard": "challenge-ocr",
	"ocr-challenge":        "challenge-ocr",
	"ocr":                  "challenge-ocr",

	"brainstorm":           "challenge-brainstorm",
	"brainstorm-buddy":     "challenge-brainstorm",
	"social-media":         "challenge-social-media",
	"social-media-wizard":  "challenge-social-media",
	"slide-deck":           "challenge-slide-deck",
	"slide-deck-generator": "challenge-slide-deck",
}

// Normalizer maps challenge identifiers to their canonical form.
// Unknown identifiers are treated as already canonical so new challenges
// need no alias entry.
type Normalizer struct {
	aliases map[string]string // alias -> canonical, fully resolved
}

// NewNormalizer builds a normalizer from the built-in alias table plus extra.
// Entries in extra override built-in ones. Chains (a -> b -> c) are resolved
// up front so Normalize is a single lookup and idempotent.
func NewNormalizer(extra map[string]string) (*Normalizer, error) {
	merged := make(map[string]string, len(builtinAliases)+len(extra))
	for alias, canonical := range builtinAliases {
		merged[alias] = canonical
	}
	for alias, canonical := range extra {
		merged[alias] = canonical
	}

	resolved, err := resolveAliases(merged)
	if err != nil {
		return nil, err
	}
	return &Normalizer{aliases: resolved}, nil
}

// DefaultNormalizer returns a normalizer over the built-in alias table only
func DefaultNormalizer() *Normalizer {
	n, err := NewNormalizer(nil)
	if err != nil {
		// the built-in table is static; a cycle there is a programming error
		panic(err)
	}
	return n
}

// Normalize returns the canonical id for id
func (n *Normalizer) Normalize(id string) string {
	if canonical, ok := n.aliases[id]; ok {
		return canonical
	}
	return id
}

// IsAlias reports whether id is a known non-canonical identifier
func (n *Normalizer) IsAlias(id string) bool {
	_, ok := n.aliases[id]
	return ok
}

// Aliases returns a copy of the resolved alias table
func (n *Normalizer) Aliases() map[string]string {
	out := make(map[string]string, len(n.aliases))
	for k, v := range n.aliases {
		out[k] = v
	}
	return out
}

// AliasesOf returns the sorted aliases resolving to canonical
func (n *Normalizer) AliasesOf(canonical string) []string {
	var out []string
	for alias, c := range n.aliases {
		if c == canonical {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

func resolveAliases(table map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(table))
	for alias := range table {
		current := alias
		for steps := 0; ; steps++ {
			next, ok := table[current]
			if !ok || next == current {
				break
			}
			if steps > len(table) {
				return nil, fmt.Errorf("%w: %q", ErrAliasCycle, alias)
			}
			current = next
		}
		if current != alias {
			resolved[alias] = current
		}
	}
	return resolved, nil
}
