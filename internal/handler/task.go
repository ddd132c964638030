package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowanvale/choreboard/internal/assignment"
	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
	"github.com/rowanvale/choreboard/internal/websocket"
)

type TaskHandler struct {
	engine     *assignment.Service
	tasks      *store.TaskStore
	visibility *store.VisibilityStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewTaskHandler(engine *assignment.Service, tasks *store.TaskStore, visibility *store.VisibilityStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{engine: engine, tasks: tasks, visibility: visibility, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

func actorFrom(r *http.Request) assignment.Actor {
	return assignment.Actor{
		HouseholdID: auth.HouseholdID(r.Context()),
		Parent:      auth.IsParent(r.Context()),
	}
}

type taskRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	RewardMode       string  `json:"reward_mode"`
	FixedRewardCents int64   `json:"fixed_reward_cents"`
	MinRewardCents   int64   `json:"min_reward_cents"`
	MaxRewardCents   int64   `json:"max_reward_cents"`
	AssignmentMode   string  `json:"assignment_mode"`
	RecurrenceRule   string  `json:"recurrence_rule"`
	PerformerIDs     []int64 `json:"performer_ids"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	task, err := h.engine.CreateTask(r.Context(), actorFrom(r), assignment.CreateTaskInput{
		HouseholdID:      auth.HouseholdID(r.Context()),
		Title:            req.Title,
		Description:      req.Description,
		RewardMode:       req.RewardMode,
		FixedRewardCents: req.FixedRewardCents,
		MinRewardCents:   req.MinRewardCents,
		MaxRewardCents:   req.MaxRewardCents,
		AssignmentMode:   req.AssignmentMode,
		RecurrenceRule:   req.RecurrenceRule,
		PerformerIDs:     req.PerformerIDs,
	})
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(task.HouseholdID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

// List returns the household's tasks. Parents see everything; anyone
// acting as a non-parent member sees only tasks visible to that member.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	if !auth.IsParent(r.Context()) {
		if memberID := auth.ActiveMemberID(r.Context()); memberID != 0 {
			excluded, err := h.visibility.ExcludedTaskIDs(memberID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to list tasks")
				return
			}
			visible := tasks[:0]
			for _, t := range tasks {
				if !excluded[t.ID] {
					visible = append(visible, t)
				}
			}
			tasks = visible
		}
	}

	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil || task.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	// Hidden must be indistinguishable from missing.
	if !auth.IsParent(r.Context()) {
		if memberID := auth.ActiveMemberID(r.Context()); memberID != 0 {
			hidden, err := h.visibility.IsExcluded(task.ID, memberID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to get task")
				return
			}
			if hidden {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil || existing.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	// The assignment mode is fixed at creation; changing it would orphan
	// or fabricate assignment rows.
	if req.AssignmentMode != "" && req.AssignmentMode != existing.AssignmentMode {
		writeError(w, http.StatusBadRequest, "assignment mode cannot be changed")
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	if req.RewardMode != "" {
		existing.RewardMode = req.RewardMode
	}
	existing.FixedRewardCents = req.FixedRewardCents
	existing.MinRewardCents = req.MinRewardCents
	existing.MaxRewardCents = req.MaxRewardCents
	existing.RecurrenceRule = req.RecurrenceRule

	task, err := h.tasks.Update(existing)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(task.HouseholdID, websocket.NewMessage("task", "updated", task.ID, nil))
	writeJSON(w, http.StatusOK, task)
}

// Disable handles POST /api/tasks/{id}/disable. Disabled tasks keep their
// history but reject completions and drop out of availability.
func (h *TaskHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true)
}

// Enable handles POST /api/tasks/{id}/enable.
func (h *TaskHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false)
}

func (h *TaskHandler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil || existing.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.SetDisabled(id, disabled); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(existing.HouseholdID, websocket.NewMessage("task", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil || existing.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(existing.HouseholdID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// SetVisibility handles PUT /api/tasks/{id}/visibility/{member_id}.
func (h *TaskHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	memberID, err := strconv.ParseInt(r.PathValue("member_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req struct {
		Excluded bool `json:"excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.engine.SetVisibility(r.Context(), actorFrom(r), id, memberID, req.Excluded); err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("set visibility", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update visibility")
		return
	}

	h.broadcast(auth.HouseholdID(r.Context()), websocket.NewMessage("task", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
