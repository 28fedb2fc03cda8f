package summarize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebrief/voicebrief/internal/summarize"
	"github.com/voicebrief/voicebrief/pkg/models"
)

func TestParse_CleanJSON(t *testing.T) {
	raw := `{"title":"Groceries","summary":"A shopping list.","actionItems":["Buy milk"],"keyPoints":["Milk is out"]}`

	sum, err := summarize.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", sum.Title)
	assert.Equal(t, "A shopping list.", sum.Summary)
	assert.Equal(t, []string{"Buy milk"}, sum.ActionItems)
	assert.Equal(t, []string{"Milk is out"}, sum.KeyPoints)
}

func TestParse_StripsFenceWithLanguageTag(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\",\"summary\":\"s\",\"actionItems\":[],\"keyPoints\":[]}\n```"

	sum, err := summarize.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", sum.Title)
}

func TestParse_StripsBareFence(t *testing.T) {
	raw := "```\n{\"title\":\"Bare\",\"summary\":\"s\"}\n```"

	sum, err := summarize.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Bare", sum.Title)
}

func TestParse_DefaultsMissingFields(t *testing.T) {
	sum, err := summarize.Parse(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", sum.Title)
	assert.Equal(t, "", sum.Summary)
	assert.Empty(t, sum.ActionItems)
	assert.Empty(t, sum.KeyPoints)
	assert.NotNil(t, sum.ActionItems)
	assert.NotNil(t, sum.KeyPoints)
}

func TestParse_NonSequenceListsDefaultToEmpty(t *testing.T) {
	sum, err := summarize.Parse(`{"title":"t","actionItems":"not a list","keyPoints":42}`)
	require.NoError(t, err)
	assert.Empty(t, sum.ActionItems)
	assert.Empty(t, sum.KeyPoints)
}

func TestParse_MalformedInput(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		"```json\nstill not json\n```",
		`"a bare string"`,
	} {
		_, err := summarize.Parse(raw)
		assert.ErrorIs(t, err, summarize.ErrMalformedResponse, "input %q", raw)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	original := models.Summary{
		Title:       "Quarterly Planning",
		Summary:     "Planning discussion for Q3.",
		ActionItems: []string{"Draft roadmap", "Book offsite"},
		KeyPoints:   []string{"Budget approved"},
	}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := summarize.Parse(string(raw))
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
