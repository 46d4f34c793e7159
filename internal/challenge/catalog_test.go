package challenge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_HasBuiltins(t *testing.T) {
	c := NewCatalog()

	list := c.List()
	require.Len(t, list, len(DefaultChallenges()))
	assert.Equal(t, "challenge-1", list[0].ID)

	ocr, ok := c.Get("challenge-ocr")
	require.True(t, ok)
	assert.Equal(t, "vision", ocr.Category)

	_, ok = c.Get("nope")
	assert.False(t, ok)
}

func TestCatalog_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "challenges.yaml")
	content := `
challenges:
  - id: challenge-ocr
    title: OCR Deluxe
    category: vision
    aliases: [ocr-v2, challenge-ocr]
  - id: challenge-speech
    family: speech
    aliases: [speech-lab]
  - title: missing id is skipped
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := NewCatalog()
	require.NoError(t, c.LoadFromFile(path))

	ocr, ok := c.Get("challenge-ocr")
	require.True(t, ok)
	assert.Equal(t, "OCR Deluxe", ocr.Title)

	speech, ok := c.Get("challenge-speech")
	require.True(t, ok)
	assert.Equal(t, "challenge-speech", speech.Title, "title defaults to id")

	// replaced entries keep their position, new ones are appended
	list := c.List()
	assert.Equal(t, len(DefaultChallenges())+1, len(list))
	assert.Equal(t, "challenge-speech", list[len(list)-1].ID)

	// self-alias is dropped
	assert.Equal(t, map[string]string{"ocr-v2": "challenge-ocr", "speech-lab": "challenge-speech"}, c.Aliases())
}

func TestCatalog_AliasesFeedNormalizer(t *testing.T) {
	c := NewCatalog()
	c.Add(modelsChallenge("challenge-speech", "speech-lab"))

	n, err := NewNormalizer(c.Aliases())
	require.NoError(t, err)
	assert.Equal(t, "challenge-speech", n.Normalize("speech-lab"))
	assert.Equal(t, "challenge-1", n.Normalize("dictation-wizard"))
}

func TestCatalog_LoadFromFile_Errors(t *testing.T) {
	c := NewCatalog()
	assert.Error(t, c.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("challenges: [unterminated"), 0644))
	assert.Error(t, c.LoadFromFile(bad))
}

func TestCatalog_ListReturnsCopies(t *testing.T) {
	c := NewCatalog()
	c.Add(modelsChallenge("challenge-x", "x-alias"))

	list := c.List()
	list[len(list)-1].Aliases[0] = "mutated"

	got, _ := c.Get("challenge-x")
	assert.Equal(t, "x-alias", got.Aliases[0])
}
