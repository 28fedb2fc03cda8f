package handler

import (
	"net/http"

	"github.com/voicebrief/voicebrief/internal/api/response"
	"github.com/voicebrief/voicebrief/internal/cache"
	"github.com/voicebrief/voicebrief/internal/store"
)

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler returns the handler for GET /api/v1/health. The database
// is load-bearing; Redis degrades the service but does not take it down.
func NewHealthHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"database": "ok", "redis": "ok"}
		healthy := true

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if err := ca.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
		}

		if !healthy {
			response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "Database unreachable")
			return
		}
		response.JSON(w, healthStatus{Status: "ok", Checks: checks})
	}
}
