package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/voicebrief/voicebrief/internal/api/middleware"
	"github.com/voicebrief/voicebrief/internal/api/response"
	"github.com/voicebrief/voicebrief/internal/blob"
	"github.com/voicebrief/voicebrief/internal/cache"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// pollView is the lightweight shape served while a job is still in flight.
type pollView struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// withoutTranscript copies a job for list/poll responses, which never carry
// the full transcript.
func withoutTranscript(j *models.Job) *models.Job {
	v := *j
	v.Transcript = nil
	return &v
}

// NewListJobsHandler returns the handler for GET /api/v1/audio/jobs.
func NewListJobsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user")
			return
		}

		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(r, "limit", defaultPageLimit)
		if limit < 1 {
			limit = defaultPageLimit
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		jobs, total, err := st.ListJobs(r.Context(), store.JobFilter{UserID: userID, Page: page, Limit: limit})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list jobs")
			return
		}

		views := make([]*models.Job, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, withoutTranscript(j))
		}
		response.Collection(w, views, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewPollJobHandler returns the handler for GET /api/v1/audio/jobs/{jobID}.
// While a job is in flight the cached status mirror answers without touching
// Postgres; terminal statuses fall through so the summary or error comes
// back with the row.
func NewPollJobHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job id")
			return
		}

		if status, found, err := ca.GetJobStatus(r.Context(), userID, jobID); err == nil && found && !models.TerminalStatus(status) {
			response.JSON(w, pollView{ID: jobID, Status: status})
			return
		}

		job, err := st.GetJob(r.Context(), jobID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch job")
			return
		}
		response.JSON(w, withoutTranscript(job))
	}
}

// NewJobResultHandler returns the handler for
// GET /api/v1/audio/jobs/{jobID}/result.
func NewJobResultHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job id")
			return
		}

		job, err := st.GetJob(r.Context(), jobID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch job")
			return
		}
		if job.Status != models.JobStatusCompleted {
			response.Error(w, http.StatusConflict, "JOB_NOT_READY",
				"Job has not completed; current status: "+job.Status)
			return
		}
		response.JSON(w, job)
	}
}

// NewDeleteJobHandler returns the handler for
// DELETE /api/v1/audio/jobs/{jobID}. The stored audio and the cached status
// go with the row.
func NewDeleteJobHandler(st store.Store, blobs blob.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job id")
			return
		}

		job, err := st.DeleteJob(r.Context(), jobID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete job")
			return
		}

		if job.AudioURL != nil {
			if err := blobs.Delete(r.Context(), *job.AudioURL); err != nil {
				slog.Warn("deleting job audio failed", "error", err, "job_id", jobID)
			}
		}
		if err := ca.DeleteJobStatus(r.Context(), userID, jobID); err != nil {
			slog.Warn("deleting cached job status failed", "error", err, "job_id", jobID)
		}
		response.NoContent(w)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
