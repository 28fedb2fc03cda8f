package handler

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voicebrief/voicebrief/internal/cache"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/pkg/models"
)

// fakeStore is an in-memory store.Store used across handler tests.
type fakeStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	jobs  map[uuid.UUID]*models.Job

	createUserErr error
	createJobErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[uuid.UUID]*models.User),
		jobs:  make(map[uuid.UUID]*models.Job),
	}
}

func (s *fakeStore) Ping(_ context.Context) error { return nil }

func (s *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	if s.createUserErr != nil {
		return s.createUserErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.ErrDuplicateKey
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateJob(_ context.Context, job *models.Job) error {
	if s.createJobErr != nil {
		return s.createJobErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return nil, store.ErrNotFound
	}
	return j, nil
}

func (s *fakeStore) ListJobs(_ context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []*models.Job
	for _, j := range s.jobs {
		if j.UserID == filter.UserID {
			owned = append(owned, j)
		}
	}
	sort.Slice(owned, func(i, k int) bool {
		return owned[i].CreatedAt.After(owned[k].CreatedAt)
	})
	total := len(owned)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return owned[start:end], total, nil
}

func (s *fakeStore) DeleteJob(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(s.jobs, id)
	return j, nil
}

func (s *fakeStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.Status = status
	u := store.ResolveJobUpdate(opts...)
	if u.AudioURL != nil {
		j.AudioURL = u.AudioURL
	}
	if u.ErrorMessage != nil {
		j.ErrorMessage = u.ErrorMessage
	}
	if u.Transcript != nil {
		j.Transcript = u.Transcript
	}
	if u.Summary != nil {
		j.Summary = u.Summary
	}
	if u.DurationSeconds != nil {
		j.DurationSeconds = u.DurationSeconds
	}
	return nil
}

// fakeCache is an in-memory cache.Cache keyed the same way as RedisCache,
// by owner and job id.
type fakeCache struct {
	mu       sync.Mutex
	statuses map[string]string
	deleted  []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{statuses: make(map[string]string)}
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }

func (c *fakeCache) SetJobStatus(_ context.Context, userID, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[cache.JobStatusKey(userID, jobID)] = status
	return nil
}

func (c *fakeCache) GetJobStatus(_ context.Context, userID, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.statuses[cache.JobStatusKey(userID, jobID)]
	return status, ok, nil
}

func (c *fakeCache) DeleteJobStatus(_ context.Context, userID, jobID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statuses, cache.JobStatusKey(userID, jobID))
	c.deleted = append(c.deleted, jobID)
	return nil
}

func (c *fakeCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// fakeBlob records deletions.
type fakeBlob struct {
	mu      sync.Mutex
	deleted []string
}

func (b *fakeBlob) Save(_ context.Context, name string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "http://blob.test/media/" + name, nil
}

func (b *fakeBlob) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, url)
	return nil
}

// fakeStager records staged uploads instead of running the pipeline.
type fakeStager struct {
	mu     sync.Mutex
	staged []stagedUpload
	done   chan struct{}
}

type stagedUpload struct {
	JobID  uuid.UUID
	UserID uuid.UUID
	Name   string
	Bytes  int
}

func newFakeStager() *fakeStager {
	return &fakeStager{done: make(chan struct{}, 8)}
}

func (f *fakeStager) Stage(jobID, userID uuid.UUID, name string, r io.Reader) {
	n, _ := io.Copy(io.Discard, r)
	f.mu.Lock()
	f.staged = append(f.staged, stagedUpload{JobID: jobID, UserID: userID, Name: name, Bytes: int(n)})
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakeStager) wait() stagedUpload {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staged[len(f.staged)-1]
}
