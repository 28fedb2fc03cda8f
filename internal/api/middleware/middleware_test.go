package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-sessions"

// fakeCache implements cache.Cache with an in-memory counter.
type fakeCache struct {
	mu      sync.Mutex
	counts  map[string]int64
	incrErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{counts: make(map[string]int64)}
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }
func (c *fakeCache) SetJobStatus(_ context.Context, _, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (c *fakeCache) GetJobStatus(_ context.Context, _, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *fakeCache) DeleteJobStatus(_ context.Context, _, _ uuid.UUID) error { return nil }
func (c *fakeCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	c.counts[key]++
	return c.counts[key], nil
}

func echoUserHandler(t *testing.T, want uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := GetUserID(r)
		require.True(t, ok)
		assert.Equal(t, want, got)
		w.WriteHeader(http.StatusOK)
	})
}

func TestIssueTokenRoundTrip(t *testing.T) {
	auth := NewAuth(testSecret, time.Hour)
	userID := uuid.New()

	token, expires, err := auth.IssueToken(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	auth.Authenticate(echoUserHandler(t, userID)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateRejections(t *testing.T) {
	auth := NewAuth(testSecret, time.Hour)

	otherSecret := NewAuth("a-completely-different-secret", time.Hour)
	foreign, _, err := otherSecret.IssueToken(uuid.New())
	require.NoError(t, err)

	expired := NewAuth(testSecret, -time.Minute)
	expiredToken, _, err := expired.IssueToken(uuid.New())
	require.NoError(t, err)

	// Unsigned token must never pass, regardless of claims.
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + foreign},
		{"expired", "Bearer " + expiredToken},
		{"alg none", "Bearer " + noneToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			called := false
			auth.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func requestWithUser(userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(SetUserID(req.Context(), userID))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitHeadersAndExceeded(t *testing.T) {
	rl := NewRateLimit(newFakeCache(), 2)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		rl.Limit(okHandler()).ServeHTTP(rec, requestWithUser(userID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(rec, requestWithUser(userID))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimitIsPerUser(t *testing.T) {
	rl := NewRateLimit(newFakeCache(), 1)

	first := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(first, requestWithUser(uuid.New()))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(second, requestWithUser(uuid.New()))
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	ca := newFakeCache()
	ca.incrErr = errors.New("redis down")
	rl := NewRateLimit(ca, 1)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		rl.Limit(okHandler()).ServeHTTP(rec, requestWithUser(uuid.New()))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitSkipsUnauthenticated(t *testing.T) {
	rl := NewRateLimit(newFakeCache(), 1)
	rec := httptest.NewRecorder()
	rl.Limit(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	rec := httptest.NewRecorder()
	Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLoggerPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
