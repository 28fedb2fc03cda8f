// Package summarize turns a transcript into a structured summary using a
// chunked map-reduce scheme over a completion model.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/voicebrief/voicebrief/internal/llm"
	"github.com/voicebrief/voicebrief/pkg/models"
)

const (
	// DefaultChunkSize is ~4000 chars (~1000 tokens), leaving prompt headroom.
	DefaultChunkSize = 4000
	// DefaultMaxAttempts bounds model call + parse attempts per chunk.
	DefaultMaxAttempts = 3

	fallbackSnippetLen = 500
)

// Summarizer orchestrates chunk splitting, model calls, and response parsing.
//
// Short transcripts get a single call; long ones are split and summarized
// per chunk (map), then combined in one final call (reduce). Map calls never
// fail outward: after the retry budget is exhausted a chunk degrades to a
// fixed fallback summary so the reduce step always has an input per chunk.
// The reduce call uses the same retry budget but propagates its error on
// exhaustion: without a coherent combined summary there is nothing useful
// to store, so the caller fails the job.
type Summarizer struct {
	client        llm.Client
	chunkSize     int
	maxAttempts   int
	callTimeout   time.Duration
	retryInterval time.Duration
}

type Option func(*Summarizer)

func WithChunkSize(n int) Option {
	return func(s *Summarizer) { s.chunkSize = n }
}

func WithMaxAttempts(n int) Option {
	return func(s *Summarizer) { s.maxAttempts = n }
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Summarizer) { s.callTimeout = d }
}

func WithRetryInterval(d time.Duration) Option {
	return func(s *Summarizer) { s.retryInterval = d }
}

func New(client llm.Client, opts ...Option) *Summarizer {
	s := &Summarizer{
		client:        client,
		chunkSize:     DefaultChunkSize,
		maxAttempts:   DefaultMaxAttempts,
		callTimeout:   60 * time.Second,
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize produces a structured summary of the transcript.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	if isBlank(transcript) {
		return models.Summary{
			Title:       "Empty Recording",
			Summary:     "No speech detected in the audio.",
			ActionItems: []string{},
			KeyPoints:   []string{},
		}, nil
	}

	if len(transcript) <= s.chunkSize {
		return s.summarizeChunk(ctx, transcript, false), nil
	}

	chunks := Split(transcript, s.chunkSize)
	slog.Info("long transcript, using map-reduce",
		"transcript_len", len(transcript), "chunks", len(chunks))

	// Map: one call per chunk, sequential, in document order. Sequencing
	// bounds concurrent load on the provider at the cost of linear latency.
	parts := make([]models.Summary, len(chunks))
	for i, chunk := range chunks {
		parts[i] = s.summarizeChunk(ctx, chunk, true)
	}

	// Reduce: one combining call over all partial summaries.
	final, err := s.completeAndParse(ctx, reducePrompt(parts))
	if err != nil {
		return models.Summary{}, fmt.Errorf("reduce summaries: %w", err)
	}
	return final, nil
}

// summarizeChunk summarizes one piece of transcript, degrading to a fixed
// fallback after the retry budget so map-reduce always gets an input.
func (s *Summarizer) summarizeChunk(ctx context.Context, text string, partial bool) models.Summary {
	prompt := fullSummaryPrompt(text)
	if partial {
		prompt = partialSummaryPrompt(text)
	}

	summary, err := s.completeAndParse(ctx, prompt)
	if err != nil {
		slog.Error("chunk summarization exhausted retries, using fallback",
			"error", err, "chunk_len", len(text), "partial", partial)
		return models.Summary{
			Title:       "Summarization Failed",
			Summary:     truncate(text, fallbackSnippetLen) + "...",
			ActionItems: []string{},
			KeyPoints:   []string{"Unable to process transcript"},
		}
	}
	return summary
}

// completeAndParse performs one model call plus parse, retried with
// exponential backoff up to the attempt budget. Transport errors and parse
// failures are retried alike, with the same prompt.
func (s *Summarizer) completeAndParse(ctx context.Context, prompt string) (models.Summary, error) {
	var result models.Summary

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		raw, err := s.client.Complete(callCtx, prompt)
		if err != nil {
			return err
		}
		parsed, err := Parse(raw)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.maxAttempts-1)), ctx),
		func(err error, wait time.Duration) {
			slog.Warn("summarization attempt failed, retrying",
				"error", err, "wait", wait, "provider", s.client.Name())
		})
	if err != nil {
		return models.Summary{}, err
	}
	return result, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// truncate shortens s to maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
