// Package asr defines the speech-to-text boundary of the pipeline.
package asr

import (
	"context"
	"errors"
)

// Sentinel errors for transcription failures.
var (
	ErrNoSpeech      = errors.New("no speech detected in audio")
	ErrTranscription = errors.New("transcription failed")
	ErrTimeout       = errors.New("transcription timed out")
)

// Result is a completed transcription.
type Result struct {
	Text            string
	Confidence      float64
	DurationSeconds float64
}

// Client transcribes audio reachable at a public URL.
type Client interface {
	Transcribe(ctx context.Context, audioURL string) (Result, error)
	Name() string
}
