package llm

import (
	"fmt"

	"github.com/voicebrief/voicebrief/internal/config"
	"github.com/voicebrief/voicebrief/internal/llm/gemini"
	"github.com/voicebrief/voicebrief/internal/llm/groq"
	"github.com/voicebrief/voicebrief/internal/llm/mock"
)

// NewClient constructs the appropriate completion client based on config.
// Called once at server startup.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "groq":
		return groq.NewClient(cfg.Groq), nil
	case "gemini":
		return gemini.NewClient(cfg.Gemini)
	case "mock":
		return mock.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be one of groq, gemini, mock", cfg.Provider)
	}
}
