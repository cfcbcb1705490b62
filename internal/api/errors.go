package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/heimdex/timeline-agent/internal/export"
	"github.com/heimdex/timeline-agent/internal/library"
	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/otio"
)

// Anything unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, library.ErrTimelineNotFound), errors.Is(err, library.ErrJobNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
		return
	case errors.Is(err, library.ErrNameRequired):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	case errors.Is(err, library.ErrDocumentTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "DOCUMENT_TOO_LARGE")
		return
	case errors.Is(err, export.ErrNoVideoTrack):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_VIDEO_TRACK")
		return
	}

	switch outcome := otio.OutcomeOf(err); outcome {
	case otio.InternalError:
		requestID, _ := r.Context().Value(RequestIDKey).(string)
		logging.WithRequestID(logger, requestID).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	case otio.JSONParseError, otio.UnknownSchema, otio.MalformedSchema,
		otio.SchemaVersionUnsupported, otio.TypeMismatch, otio.InvalidTimecode:
		WriteError(w, http.StatusBadRequest, err.Error(), outcome.String())
	case otio.IllegalIndex:
		WriteError(w, http.StatusNotFound, err.Error(), outcome.String())
	default:
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), outcome.String())
	}
}

// Bodies past limit get a 413. limit <= 0 reads without a bound.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request body too large", "DOCUMENT_TOO_LARGE")
			return nil, false
		}
		WriteError(w, http.StatusBadRequest, "failed to read request body", "BAD_REQUEST")
		return nil, false
	}
	return data, true
}

// An empty body leaves v as is.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	data, ok := readBody(w, r, limit)
	if !ok {
		return false
	}
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}
