package summarize

import (
	"fmt"
	"strings"

	"github.com/voicebrief/voicebrief/pkg/models"
)

func fullSummaryPrompt(text string) string {
	return fmt.Sprintf(`You are a professional note summarizer. Analyze this voice note transcript and create a structured summary.

TRANSCRIPT:
%s

Create a summary with:
1. A concise, descriptive title
2. A clear summary (2-3 short paragraphs)
3. Action items mentioned (tasks, to-dos, follow-ups)
4. Key points (important facts, decisions, ideas)

Output ONLY valid JSON with this exact structure:
{
    "title": "A concise title (5-10 words)",
    "summary": "A comprehensive summary",
    "actionItems": ["action 1", "action 2"],
    "keyPoints": ["point 1", "point 2", "point 3"]
}

Output ONLY the JSON, no markdown code blocks, no explanation.`, text)
}

func partialSummaryPrompt(text string) string {
	return fmt.Sprintf(`Summarize this portion of a voice note transcript. Focus on key information.

TEXT:
%s

Output ONLY valid JSON:
{
    "title": "Brief topic",
    "summary": "Key points from this section",
    "actionItems": ["any actions mentioned"],
    "keyPoints": ["important points"]
}

Output ONLY the JSON, no markdown code blocks.`, text)
}

// reducePrompt renders the partial summaries in original document order so
// the combined title and narrative reflect chronological flow.
func reducePrompt(parts []models.Summary) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Part %d:\nSummary: %s\nKey Points: %s\nAction Items: %s",
			i+1, p.Summary, strings.Join(p.KeyPoints, ", "), strings.Join(p.ActionItems, ", "))
	}

	return fmt.Sprintf(`You are combining multiple partial summaries into one coherent final summary.

Here are the partial summaries:
%s

Create a unified summary that combines all parts. Output ONLY valid JSON with this exact structure:
{
    "title": "A concise title (5-10 words)",
    "summary": "A comprehensive summary (2-3 paragraphs)",
    "actionItems": ["action 1", "action 2"],
    "keyPoints": ["point 1", "point 2", "point 3"]
}

Output ONLY the JSON, no markdown code blocks, no explanation.`, b.String())
}
