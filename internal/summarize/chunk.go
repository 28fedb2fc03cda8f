package summarize

import "strings"

// Split breaks text into ordered chunks of at most maxSize characters,
// preferring to cut at the last sentence terminator or newline inside the
// window. A soft break is only taken when it lands past the window's
// midpoint, which bounds the worst-case chunk count while avoiding
// mid-sentence truncation. Stateless and deterministic.
func Split(text string, maxSize int) []string {
	if maxSize < 1 {
		maxSize = 1
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + maxSize

		if end < len(text) {
			window := text[start:end]
			lastPeriod := strings.LastIndexByte(window, '.')
			lastNewline := strings.LastIndexByte(window, '\n')
			breakPoint := lastPeriod
			if lastNewline > breakPoint {
				breakPoint = lastNewline
			}
			if breakPoint > maxSize/2 {
				end = start + breakPoint + 1
			}
		} else {
			end = len(text)
		}

		// end > start holds unconditionally: the soft break is at least
		// one byte into the window, so the loop always advances.
		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}

	return chunks
}
