package summarize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voicebrief/voicebrief/pkg/models"
)

// ErrMalformedResponse is returned when a model response is not valid JSON
// even after fence stripping. Missing optional fields are not malformed;
// they are defaulted.
var ErrMalformedResponse = errors.New("malformed summarization response")

// Parse extracts a structured summary from raw model output. Models
// frequently wrap JSON in markdown code fences despite being told not to,
// and sometimes omit optional fields; both are tolerated.
func Parse(raw string) (models.Summary, error) {
	cleaned := stripFences(raw)

	var parsed struct {
		Title       string `json:"title"`
		Summary     string `json:"summary"`
		ActionItems any    `json:"actionItems"`
		KeyPoints   any    `json:"keyPoints"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.Summary{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	summary := models.Summary{
		Title:       parsed.Title,
		Summary:     parsed.Summary,
		ActionItems: stringSlice(parsed.ActionItems),
		KeyPoints:   stringSlice(parsed.KeyPoints),
	}
	if summary.Title == "" {
		summary.Title = "Untitled"
	}
	return summary, nil
}

// stripFences removes a leading code fence (with or without a language tag)
// and a trailing fence, then trims whitespace.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[3:]
		// Drop a language tag such as "json" directly after the fence.
		for len(cleaned) > 0 && isTagByte(cleaned[0]) {
			cleaned = cleaned[1:]
		}
	}
	cleaned = strings.TrimSpace(cleaned)
	if strings.HasSuffix(cleaned, "```") {
		cleaned = cleaned[:len(cleaned)-3]
	}
	return strings.TrimSpace(cleaned)
}

func isTagByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// stringSlice coerces a decoded JSON value into a string slice. Anything
// that is not an array yields an empty slice rather than an error.
func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
