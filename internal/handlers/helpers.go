package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response with a length-bounded message
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength] + "..."
	}
	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError maps a service error to its status. Messages of domain errors are shown
// as is; anything else is logged and answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := models.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.Error(err),
		)
		respondJSONError(w, status, http.StatusText(status), "An unexpected error occurred")
		return
	}
	respondJSONError(w, status, http.StatusText(status), err.Error())
}

// actorID returns the authenticated user id, answering 401 when there is none.
func actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return uuid.Nil, false
	}
	return user.ID, true
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
