package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/services/gamification"
	"github.com/benvon/focus-quest/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProfileService reads and edits the gamified profile.
type ProfileService interface {
	GetProfileView(ctx context.Context, userID uuid.UUID) (*gamification.ProfileView, error)
	SetMood(ctx context.Context, userID uuid.UUID, mood models.Mood) (*models.Profile, error)
}

// RelaxSuggester proposes short breaks.
type RelaxSuggester interface {
	RelaxSuggestions(ctx context.Context) []string
}

var (
	_ ProfileService = (*gamification.Engine)(nil)
	_ RelaxSuggester = (*ai.Client)(nil)
)

// ProfileHandler handles profile, mood and relax requests
type ProfileHandler struct {
	profiles ProfileService
	relax    RelaxSuggester
	logger   *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileService, relax RelaxSuggester, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, relax: relax, logger: orNop(logger)}
}

// RegisterRoutes registers profile routes
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile/mood", h.SetMood).Methods("PUT")
	r.HandleFunc("/relax", h.GetRelax).Methods("GET")
}

type setMoodRequest struct {
	Mood string `json:"mood" validate:"required,mood"`
}

// GetProfile returns level, title and badges
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	view, err := h.profiles.GetProfileView(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// SetMood records the current mood
func (h *ProfileHandler) SetMood(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req setMoodRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	mood, _ := models.ParseMood(req.Mood)

	profile, err := h.profiles.SetMood(r.Context(), actor, mood)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GetRelax returns a few break ideas
func (h *ProfileHandler) GetRelax(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorID(w, r); !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"suggestions": h.relax.RelaxSuggestions(r.Context())})
}
