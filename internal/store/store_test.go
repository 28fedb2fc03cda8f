package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("voicebrief_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func createTestUser(t *testing.T, s store.Store) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     "alice-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "$2a$12$fakehashfakehashfakehash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func createTestJob(t *testing.T, s store.Store, userID uuid.UUID) *models.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &models.Job{
		ID:               uuid.New(),
		UserID:           userID,
		Status:           models.JobStatusPending,
		OriginalFilename: "standup.m4a",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	user := createTestUser(t, s)
	dup := *user
	dup.ID = uuid.New()
	dup.Username = "someone-else"

	err := s.CreateUser(context.Background(), &dup)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestGetUserByEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	user := createTestUser(t, s)

	got, err := s.GetUserByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJobLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))
	user := createTestUser(t, s)
	job := createTestJob(t, s, user.ID)

	err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusUploaded,
		store.WithAudioURL("http://localhost:8080/media/"+job.ID.String()+".m4a"))
	require.NoError(t, err)

	err = s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing)
	require.NoError(t, err)

	summary := models.Summary{
		Title:       "Weekly standup",
		Summary:     "Discussed the release.",
		ActionItems: []string{"Ship v2"},
		KeyPoints:   []string{"Release on Friday"},
	}
	err = s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted,
		store.WithTranscript("We will ship v2 on Friday."),
		store.WithSummary(summary))
	require.NoError(t, err)

	got, err := s.GetJob(ctx, job.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Transcript)
	assert.Equal(t, "We will ship v2 on Friday.", *got.Transcript)
	require.NotNil(t, got.Summary)
	assert.Equal(t, summary, *got.Summary)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestUpdateJobStatus_RejectsBackwardTransition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))
	user := createTestUser(t, s)
	job := createTestJob(t, s, user.ID)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))

	err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusUploaded)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestUpdateJobStatus_SuppressesLateWriteAfterTerminal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))
	user := createTestUser(t, s)
	job := createTestJob(t, s, user.ID)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))
	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed,
		store.WithErrorMessage("asr transport error")))

	// A stray retry completing late must not overwrite the terminal state.
	err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted,
		store.WithTranscript("late"), store.WithSummary(models.Summary{Title: "late"}))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := s.GetJob(ctx, job.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Nil(t, got.Summary)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "asr transport error", *got.ErrorMessage)
}

func TestUpdateJobStatus_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	err := s.UpdateJobStatus(context.Background(), uuid.New(), models.JobStatusProcessing)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetJob_EnforcesOwnership(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))
	owner := createTestUser(t, s)
	stranger := createTestUser(t, s)
	job := createTestJob(t, s, owner.ID)

	_, err := s.GetJob(ctx, job.ID, stranger.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.DeleteJob(ctx, job.ID, stranger.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListJobs_PaginatesNewestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))
	user := createTestUser(t, s)

	for i := 0; i < 5; i++ {
		job := &models.Job{
			ID:               uuid.New(),
			UserID:           user.ID,
			Status:           models.JobStatusPending,
			OriginalFilename: "note.m4a",
			CreatedAt:        time.Now().UTC().Add(time.Duration(i) * time.Second),
			UpdatedAt:        time.Now().UTC(),
		}
		require.NoError(t, s.CreateJob(ctx, job))
	}

	jobs, total, err := s.ListJobs(ctx, store.JobFilter{UserID: user.ID, Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, jobs, 3)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	jobs, _, err = s.ListJobs(ctx, store.JobFilter{UserID: user.ID, Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
