package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/export"
	"suctracker/backend/services/checkin-service/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respond writes payload as JSON, or as JSONP when the request names a callback.
func respond(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	callback := r.URL.Query().Get("callback")
	if callback == "" {
		writeJSON(w, status, payload)
		return
	}
	body, err := export.JSONP(callback, payload)
	if errors.Is(err, export.ErrInvalidCallback) {
		writeError(w, http.StatusBadRequest, "invalid callback")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeFailure maps validation failures to 400 and hides everything else
// behind a logged 500.
func writeFailure(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"kind":  string(verr.Kind),
			"field": verr.Field,
		})
		return
	}
	logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
