package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/voicebrief/voicebrief/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidTransition is returned when a status write violates the job state
// machine, including any write after a terminal state. Callers that race a
// completed/failed job treat this as a benign late write and only log it.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	DeleteJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

// JobFilter selects a page of a user's jobs, newest first.
type JobFilter struct {
	UserID uuid.UUID
	Page   int
	Limit  int
}

// JobUpdate is the resolved field set carried by a status update. Exposed so
// test doubles can inspect what an UpdateJobStatus call would write.
type JobUpdate struct {
	ErrorMessage    *string
	AudioURL        *string
	DurationSeconds *float64
	Transcript      *string
	Summary         *models.Summary
}

type JobUpdateOption func(*JobUpdate)

// ResolveJobUpdate applies opts to an empty JobUpdate.
func ResolveJobUpdate(opts ...JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ErrorMessage = &msg
	}
}

func WithAudioURL(url string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.AudioURL = &url
	}
}

func WithDuration(seconds float64) JobUpdateOption {
	return func(p *JobUpdate) {
		p.DurationSeconds = &seconds
	}
}

func WithTranscript(text string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.Transcript = &text
	}
}

func WithSummary(s models.Summary) JobUpdateOption {
	return func(p *JobUpdate) {
		p.Summary = &s
	}
}
