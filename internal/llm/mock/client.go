// Package mock provides a completion client for tests and offline demos.
package mock

import "context"

// Client satisfies llm.Client for testing.
type Client struct {
	Name_        string
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
}

func (c *Client) Name() string { return c.Name_ }

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.CompleteFunc != nil {
		return c.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

// NewClient returns a mock producing a fixed, parseable summary response.
func NewClient() *Client {
	return &Client{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ string) (string, error) {
			return `{"title":"Mock Summary","summary":"Deterministic summary for testing.","actionItems":["verify output"],"keyPoints":["mock provider in use"]}`, nil
		},
	}
}

// NewFailingClient returns a mock that always returns the given error.
func NewFailingClient(err error) *Client {
	return &Client{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}
