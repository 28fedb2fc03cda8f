// Package api assembles the HTTP surface of the service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/voicebrief/voicebrief/internal/api/middleware"
	"github.com/voicebrief/voicebrief/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	// Local media directory served under /media/ so the transcription
	// provider can fetch uploaded audio.
	MediaDir string

	HealthHandler   http.HandlerFunc
	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	UploadHandler   http.HandlerFunc
	ListJobsHandler http.HandlerFunc
	PollJobHandler  http.HandlerFunc
	JobResult       http.HandlerFunc
	DeleteJob       http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	if deps.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaDir)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/audio", orNotImplemented(deps.UploadHandler))
		r.Get("/api/v1/audio/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/audio/jobs/{jobID}", orNotImplemented(deps.PollJobHandler))
		r.Get("/api/v1/audio/jobs/{jobID}/result", orNotImplemented(deps.JobResult))
		r.Delete("/api/v1/audio/jobs/{jobID}", orNotImplemented(deps.DeleteJob))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}
