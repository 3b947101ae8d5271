package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/plans"
	"github.com/benvon/focus-quest/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PlanService manages study plans.
type PlanService interface {
	Create(ctx context.Context, actor uuid.UUID, req plans.CreateRequest) (*models.StudyPlan, error)
	View(ctx context.Context, actor, id uuid.UUID) (*plans.View, error)
	List(ctx context.Context, actor uuid.UUID) ([]*models.StudyPlan, error)
	Activate(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error)
	Complete(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
	DeleteCompleted(ctx context.Context, actor uuid.UUID) (int64, error)
	ExpandDay(ctx context.Context, actor, planID uuid.UUID, day string) (*plans.ExpandResult, error)
}

var _ PlanService = (*plans.Service)(nil)

// PlanHandler handles study plan requests
type PlanHandler struct {
	plans  PlanService
	logger *zap.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(svc PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{plans: svc, logger: orNop(logger)}
}

// RegisterRoutes registers plan routes
func (h *PlanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/plans", h.ListPlans).Methods("GET")
	r.HandleFunc("/plans", h.CreatePlan).Methods("POST")
	r.HandleFunc("/plans/completed", h.DeleteCompleted).Methods("DELETE")
	r.HandleFunc("/plans/{id}", h.GetPlan).Methods("GET")
	r.HandleFunc("/plans/{id}", h.DeletePlan).Methods("DELETE")
	r.HandleFunc("/plans/{id}/activate", h.planAction(h.plans.Activate)).Methods("POST")
	r.HandleFunc("/plans/{id}/complete", h.planAction(h.plans.Complete)).Methods("POST")
	r.HandleFunc("/plans/{id}/days/{day}/tasks", h.ExpandDay).Methods("POST")
}

type createPlanRequest struct {
	Subject      string `json:"subject" validate:"max=200"`
	Goal         string `json:"goal" validate:"max=1000"`
	DurationDays int    `json:"duration_days"`
}

// ListPlans returns the actor's plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	list, err := h.plans.List(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []*models.StudyPlan{}
	}
	respondJSON(w, http.StatusOK, list)
}

// CreatePlan generates a new active plan
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req createPlanRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.Subject = validation.SanitizeText(req.Subject)
	req.Goal = validation.SanitizeText(req.Goal)
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	plan, err := h.plans.Create(r.Context(), actor, plans.CreateRequest{
		Subject:      req.Subject,
		Goal:         req.Goal,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

// GetPlan returns a plan with its structured days
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	view, err := h.plans.View(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DeletePlan deletes a plan and its tasks
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.plans.Delete(r.Context(), actor, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCompleted removes every completed plan of the actor
func (h *PlanHandler) DeleteCompleted(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	n, err := h.plans.DeleteCompleted(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// ExpandDay turns one plan day into inbox tasks
func (h *PlanHandler) ExpandDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	result, err := h.plans.ExpandDay(r.Context(), actor, id, mux.Vars(r)["day"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if result.Added > 0 {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}

func (h *PlanHandler) planAction(fn func(ctx context.Context, actor, id uuid.UUID) (*models.StudyPlan, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}
		id, err := request.PathUUID(r, "id")
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		plan, err := fn(r.Context(), actor, id)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, plan)
	}
}
