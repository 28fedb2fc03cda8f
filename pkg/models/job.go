// Package models contains shared data models used across the VoiceBrief codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusUploaded   = "uploaded"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// TerminalStatus reports whether a job status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// Job tracks one voice recording from upload through transcription and
// summarization. The API returns a job id on POST /api/v1/audio; the client
// polls GET /api/v1/audio/jobs/{jobID} until status is completed or failed.
type Job struct {
	ID               uuid.UUID `db:"id"                json:"id"`
	UserID           uuid.UUID `db:"user_id"           json:"user_id"`
	Status           string    `db:"status"            json:"status"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	AudioURL         *string   `db:"audio_url"         json:"audio_url,omitempty"`
	DurationSeconds  *float64  `db:"duration_seconds"  json:"duration_seconds,omitempty"`
	Transcript       *string   `db:"transcript"        json:"transcript,omitempty"`
	Summary          *Summary  `db:"summary"           json:"summary,omitempty"`
	ErrorMessage     *string   `db:"error_message"     json:"error_message,omitempty"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"        json:"updated_at"`
}
