package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/tasks"
	"github.com/benvon/focus-quest/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskService is the task lifecycle used by TaskHandler.
type TaskService interface {
	Dashboard(ctx context.Context, actor uuid.UUID, suppress bool) (*tasks.Dashboard, error)
	CreateManual(ctx context.Context, actor uuid.UUID, title string) (*models.Task, error)
	CreateAI(ctx context.Context, actor uuid.UUID, text string) (*models.Task, error)
	Get(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)
	Activate(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)
	Complete(ctx context.Context, actor, id uuid.UUID) (*tasks.CompleteResult, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
	Snooze(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)
	StartTimer(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)
	ExtendTimer(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)
	UpdateDetails(ctx context.Context, actor, id uuid.UUID, upd tasks.DetailsUpdate) (*models.Task, error)
	SuggestByDifficulty(ctx context.Context, actor uuid.UUID, difficulty models.Difficulty) (*models.Task, error)
	History(ctx context.Context, actor uuid.UUID) ([]tasks.HistoryDay, error)
	ResetHistory(ctx context.Context, actor uuid.UUID) (int64, error)
}

var _ TaskService = (*tasks.Service)(nil)

// TaskHandler handles dashboard, task and history requests
type TaskHandler struct {
	tasks  TaskService
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(svc TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: svc, logger: orNop(logger)}
}

// RegisterRoutes registers task routes on the authenticated /api/v1 router.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard", h.GetDashboard).Methods("GET")
	r.HandleFunc("/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/history", h.ResetHistory).Methods("DELETE")

	r.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	r.HandleFunc("/tasks/ai", h.CreateAITask).Methods("POST")
	r.HandleFunc("/tasks/suggest", h.Suggest).Methods("POST")
	r.HandleFunc("/tasks/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/tasks/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/tasks/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/tasks/{id}/activate", h.taskAction(h.tasks.Activate)).Methods("POST")
	r.HandleFunc("/tasks/{id}/snooze", h.taskAction(h.tasks.Snooze)).Methods("POST")
	r.HandleFunc("/tasks/{id}/timer/start", h.taskAction(h.tasks.StartTimer)).Methods("POST")
	r.HandleFunc("/tasks/{id}/timer/extend", h.taskAction(h.tasks.ExtendTimer)).Methods("POST")
	r.HandleFunc("/tasks/{id}/complete", h.CompleteTask).Methods("POST")
}

type createTaskRequest struct {
	Title string `json:"title"`
}

type createAITaskRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type updateTaskRequest struct {
	Memo      *string `json:"memo" validate:"omitempty,max=2000"`
	Important *bool   `json:"important"`
}

type suggestRequest struct {
	Difficulty string `json:"difficulty" validate:"required,difficulty"`
}

// GetDashboard returns the dashboard, auto-activating a task unless ?suppress=true.
func (h *TaskHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	suppress, _ := strconv.ParseBool(r.URL.Query().Get("suppress"))

	dash, err := h.tasks.Dashboard(r.Context(), actor, suppress)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// CreateTask creates a task from a plain title
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.CreateManual(r.Context(), actor, validation.SanitizeText(req.Title))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// CreateAITask creates a task whose title is rewritten from free text
func (h *TaskHandler) CreateAITask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req createAITaskRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.Text = validation.SanitizeText(req.Text)
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.CreateAI(r.Context(), actor, req.Text)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetTask returns one task visible to the actor
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	h.taskAction(h.tasks.Get)(w, r)
}

// UpdateTask edits memo and importance
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req updateTaskRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if req.Memo != nil {
		memo := validation.SanitizeText(*req.Memo)
		req.Memo = &memo
	}

	task, err := h.tasks.UpdateDetails(r.Context(), actor, id, tasks.DetailsUpdate{Memo: req.Memo, Important: req.Important})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// CompleteTask completes a task and reports the xp, level and badges it earned
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.tasks.Complete(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, err := request.PathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.tasks.Delete(r.Context(), actor, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggest activates a random inbox task of the requested difficulty
func (h *TaskHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req suggestRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	difficulty, _ := models.ParseDifficulty(req.Difficulty)

	task, err := h.tasks.SuggestByDifficulty(r.Context(), actor, difficulty)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// GetHistory returns completed personal tasks grouped by day
func (h *TaskHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	days, err := h.tasks.History(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if days == nil {
		days = []tasks.HistoryDay{}
	}
	respondJSON(w, http.StatusOK, days)
}

// ResetHistory deletes completed personal tasks
func (h *TaskHandler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	n, err := h.tasks.ResetHistory(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// taskAction adapts a single-task service call into a handler for /tasks/{id} routes.
func (h *TaskHandler) taskAction(fn func(ctx context.Context, actor, id uuid.UUID) (*models.Task, error)) http.HandlerFunc {
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
		task, err := fn(r.Context(), actor, id)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, task)
	}
}
