package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/oidc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// LoginConfigProvider builds the configuration the frontend needs to start a login.
type LoginConfigProvider interface {
	LoginConfig(ctx context.Context, state string) *oidc.LoginConfig
}

var _ LoginConfigProvider = (*oidc.Provider)(nil)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	provider LoginConfigProvider
}

// NewAuthHandler creates a new auth handler. A nil provider means OIDC is not configured.
func NewAuthHandler(provider LoginConfigProvider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

// RegisterPublicRoutes registers the login route on the /api/v1/auth router.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
}

// RegisterRoutes registers the authenticated auth routes on the /api/v1/auth router.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "OIDC is not configured")
		return
	}
	respondJSON(w, http.StatusOK, h.provider.LoginConfig(r.Context(), uuid.NewString()))
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
