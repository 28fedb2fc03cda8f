package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/voicebrief/voicebrief/internal/api/middleware"
	"github.com/voicebrief/voicebrief/internal/api/response"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/pkg/models"
)

// Stager hands a freshly created job and its audio off to background staging.
type Stager interface {
	Stage(jobID, userID uuid.UUID, name string, r io.Reader)
}

// Browsers are inconsistent about audio MIME types, so a file passes if
// either its reported type or its extension is recognized.
var allowedMIMETypes = map[string]bool{
	"audio/mpeg": true, "audio/mp3": true, "audio/wav": true,
	"audio/x-wav": true, "audio/wave": true, "audio/mp4": true,
	"audio/x-m4a": true, "audio/m4a": true, "audio/webm": true,
	"audio/ogg": true, "audio/opus": true, "video/mp4": true,
	"video/webm": true,
}

var allowedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".webm": true,
	".ogg": true, ".mp4": true, ".opus": true,
}

// NewUploadHandler returns the handler for POST /api/v1/audio. It creates the
// job, responds immediately, and leaves blob staging and processing to the
// background pipeline.
func NewUploadHandler(st store.Store, stager Stager, maxUploadMB int64) http.HandlerFunc {
	maxBytes := maxUploadMB << 20
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user")
			return
		}

		// Extra megabyte covers multipart framing overhead.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

		file, header, err := r.FormFile("audio")
		if err != nil {
			if tooLarge(err) {
				response.Error(w, http.StatusRequestEntityTooLarge,
					"FILE_TOO_LARGE", fmt.Sprintf("Audio file exceeds the %d MB limit", maxUploadMB))
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", `multipart field "audio" is required`)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !validAudioUpload(header.Header.Get("Content-Type"), ext) {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT",
				"Unsupported audio format; use mp3, wav, m4a, webm, ogg, mp4, or opus")
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read audio file")
			return
		}
		if int64(len(data)) > maxBytes {
			response.Error(w, http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE", fmt.Sprintf("Audio file exceeds the %d MB limit", maxUploadMB))
			return
		}

		now := time.Now().UTC()
		job := &models.Job{
			ID:               uuid.New(),
			UserID:           userID,
			Status:           models.JobStatusPending,
			OriginalFilename: header.Filename,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := st.CreateJob(r.Context(), job); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job")
			return
		}

		go stager.Stage(job.ID, job.UserID, job.ID.String()+ext, bytes.NewReader(data))

		response.Created(w, job)
	}
}

func validAudioUpload(contentType, ext string) bool {
	if allowedExtensions[ext] {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return allowedMIMETypes[mediaType]
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
