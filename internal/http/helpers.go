package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gptracker/internal/backup"
	"gptracker/internal/core"
	"gptracker/internal/log"
	"gptracker/internal/prices"
	"gptracker/internal/remote"
	"gptracker/internal/services"
	gpsync "gptracker/internal/sync"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP statuses. Anything unmapped is a
// 500 with a generic body; the detail goes to the log, not the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, core.ErrUnknownMethod),
		errors.Is(err, core.ErrSnapshotNotFound),
		errors.Is(err, prices.ErrCharacterNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, services.ErrStatsDisabled):
		status = http.StatusServiceUnavailable
		msg = err.Error()
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCharacter),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, backup.ErrUnsupportedVersion),
		errors.Is(err, backup.ErrEmptyBackup),
		errors.Is(err, backup.ErrNoBankRows):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, remote.ErrAuth):
		status = http.StatusUnauthorized
		msg = "remote authentication failed"
	case errors.Is(err, gpsync.ErrEmptyOverwrite):
		status = http.StatusConflict
		msg = err.Error()
	}

	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "request rejected",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseBoolParam(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}
