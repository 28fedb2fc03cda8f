package models

// Summary is the structured output of summarization. The same shape is used
// for per-chunk partial summaries and for the final stored result; partial
// summaries are transient and never persisted.
type Summary struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
	KeyPoints   []string `json:"keyPoints"`
}
