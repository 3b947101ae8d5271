package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/teams"
	"github.com/benvon/focus-quest/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TeamService manages teams and their shared tasks.
type TeamService interface {
	Create(ctx context.Context, actor uuid.UUID, name string) (*models.Team, error)
	List(ctx context.Context, actor uuid.UUID) ([]*models.Team, error)
	Dashboard(ctx context.Context, actor, teamID uuid.UUID) (*teams.Dashboard, error)
	Invite(ctx context.Context, actor, teamID uuid.UUID, email string) (*models.User, error)
	AddTask(ctx context.Context, actor, teamID uuid.UUID, title, assignee string) ([]*models.Task, error)
}

var _ TeamService = (*teams.Service)(nil)

// TeamHandler handles team requests
type TeamHandler struct {
	teams  TeamService
	logger *zap.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(svc TeamService, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{teams: svc, logger: orNop(logger)}
}

// RegisterRoutes registers team routes
func (h *TeamHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/teams", h.ListTeams).Methods("GET")
	r.HandleFunc("/teams", h.CreateTeam).Methods("POST")
	r.HandleFunc("/teams/{id}", h.GetTeam).Methods("GET")
	r.HandleFunc("/teams/{id}/members", h.InviteMember).Methods("POST")
	r.HandleFunc("/teams/{id}/tasks", h.AddTask).Methods("POST")
}

type createTeamRequest struct {
	Name string `json:"name" validate:"max=100"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type memberResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

type addTeamTaskRequest struct {
	Title string `json:"title"`
	// AssigneeID is a member id, "all" for one copy per member, or empty for unassigned.
	AssigneeID string `json:"assignee_id"`
}

// ListTeams returns teams the actor belongs to
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	list, err := h.teams.List(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []*models.Team{}
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateTeam creates a team owned by the actor
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req createTeamRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.Name = validation.SanitizeText(req.Name)
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	team, err := h.teams.Create(r.Context(), actor, req.Name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

// GetTeam returns the team dashboard
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	actor, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}
	dash, err := h.teams.Dashboard(r.Context(), actor, teamID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// InviteMember adds an existing user to the team by email
func (h *TeamHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	actor, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.teams.Invite(r.Context(), actor, teamID, req.Email)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, memberResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName()})
}

// AddTask creates team tasks for one member, every member, or nobody
func (h *TeamHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	actor, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}
	var req addTeamTaskRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	created, err := h.teams.AddTask(r.Context(), actor, teamID, validation.SanitizeText(req.Title), req.AssigneeID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *TeamHandler) teamRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := actorID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	teamID, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return uuid.Nil, uuid.Nil, false
	}
	return actor, teamID, true
}
