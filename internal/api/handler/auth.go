// Package handler contains the HTTP handlers of the public API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/voicebrief/voicebrief/internal/api/middleware"
	"github.com/voicebrief/voicebrief/internal/api/response"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
)

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// NewRegisterHandler returns the handler for POST /api/v1/auth/register.
func NewRegisterHandler(st store.Store, auth *mw.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Username == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "username is required")
			return
		}
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "a valid email is required")
			return
		}
		if len(req.Password) < minPasswordLength {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "password must be at least 8 characters")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user")
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           uuid.New(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "ALREADY_EXISTS", "An account with this email already exists")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user")
			return
		}

		token, expires, err := auth.IssueToken(user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
			return
		}
		response.Created(w, authResponse{Token: token, ExpiresAt: expires, User: user})
	}
}

// NewLoginHandler returns the handler for POST /api/v1/auth/login.
func NewLoginHandler(st store.Store, auth *mw.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
			return
		}

		user, err := st.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}

		token, expires, err := auth.IssueToken(user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
			return
		}
		response.JSON(w, authResponse{Token: token, ExpiresAt: expires, User: user})
	}
}
