package challenge

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/challenge-progress/internal/models"
)

// catalogFile is the on-disk YAML layout of a challenge catalog
type catalogFile struct {
	Challenges []models.Challenge `yaml:"challenges"`
}

// Catalog holds the known challenges keyed by canonical id
type Catalog struct {
	mu         sync.RWMutex
	challenges map[string]*models.Challenge
	order      []string
}

// NewCatalog creates a catalog preloaded with the built-in challenges
func NewCatalog() *Catalog {
	c := &Catalog{challenges: make(map[string]*models.Challenge)}
	for _, ch := range DefaultChallenges() {
		c.Add(ch)
	}
	return c
}

// DefaultChallenges is the built-in challenge list.
// Keep ids stable because user storage references them.
func DefaultChallenges() []models.Challenge {
	return []models.Challenge{
		{ID: "challenge-1", Title: "Dictation Wizard", Category: "language",
			Description: "Turn spoken notes into clean, structured text"},
		{ID: "challenge-2", Title: "Dataset Analysis", Family: "dataset-analysis", Category: "data",
			Description: "Pick a dataset and let an assistant summarize what it shows"},
		{ID: "challenge-3", Title: "Translation Studio", Family: "translation", Category: "language",
			Description: "Translate text between languages and compare the results"},
		{ID: "challenge-4", Title: "Model Comparison", Category: "models",
			Description: "Send the same prompt to several models and compare the answers"},
		{ID: "challenge-5", Title: "Image Generation", Category: "creative",
			Description: "Describe an image and generate it from a prompt"},
		{ID: "challenge-ocr", Title: "Text From Images", Category: "vision",
			Description: "Extract text from a photo or scanned document"},
		{ID: "challenge-brainstorm", Title: "Brainstorm Buddy", Family: "brainstorm", Category: "creative",
			Description: "Generate and rank ideas for a topic"},
		{ID: "challenge-social-media", Title: "Social Media Post", Family: "social-media", Category: "creative",
			Description: "Draft a post for a platform and audience"},
		{ID: "challenge-slide-deck", Title: "Slide Deck Generator", Family: "slide-deck", Category: "creative",
			Description: "Outline a presentation and generate its slides"},
	}
}

// LoadFromFile merges challenges from a YAML catalog file.
// Entries with an existing id replace the built-in definition.
func (c *Catalog) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	loaded := 0
	for i, ch := range file.Challenges {
		if ch.ID == "" {
			slog.Warn("skipping catalog entry without id", "file", path, "index", i)
			continue
		}
		if ch.Title == "" {
			ch.Title = ch.ID
		}
		c.Add(ch)
		loaded++
	}

	slog.Info("challenge catalog loaded", "file", path, "count", loaded)
	return nil
}

// Add programmatically adds or replaces a challenge
func (c *Catalog) Add(ch models.Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.challenges[ch.ID]; !exists {
		c.order = append(c.order, ch.ID)
	}
	stored := cloneChallenge(ch)
	c.challenges[ch.ID] = &stored
}

// Get retrieves a challenge by canonical id
func (c *Catalog) Get(id string) (models.Challenge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ch, ok := c.challenges[id]
	if !ok {
		return models.Challenge{}, false
	}
	return cloneChallenge(*ch), true
}

// List returns all challenges in catalog order
func (c *Catalog) List() []models.Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.Challenge, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, cloneChallenge(*c.challenges[id]))
	}
	return result
}

// Aliases returns the alias -> id table declared by catalog entries
func (c *Catalog) Aliases() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string)
	for id, ch := range c.challenges {
		for _, alias := range ch.Aliases {
			if alias != "" && alias != id {
				out[alias] = id
			}
		}
	}
	return out
}

func cloneChallenge(ch models.Challenge) models.Challenge {
	if ch.Aliases != nil {
		ch.Aliases = append([]string(nil), ch.Aliases...)
	}
	return ch
}
