// Package llm defines the text-completion boundary used by summarization.
package llm

import "context"

// Client sends a prompt to a completion model and returns the raw text of
// the response. Concrete providers live in the subpackages and are selected
// by NewClient.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}
