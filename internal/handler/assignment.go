package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rowanvale/choreboard/internal/assignment"
	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/model"
)

// AssignmentHandler exposes the completion lifecycle. Broadcasts and
// notifications happen inside the engine's event hooks, not here.
type AssignmentHandler struct {
	engine *assignment.Service
	logger *slog.Logger
}

func NewAssignmentHandler(engine *assignment.Service, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{engine: engine, logger: logger}
}

// performerID resolves who the request acts as. Parents may act on behalf
// of any household member via ?member_id; everyone else uses the member
// selected at login.
func performerID(r *http.Request) (int64, bool) {
	if auth.IsParent(r.Context()) {
		if raw := r.URL.Query().Get("member_id"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return id, true
			}
			return 0, false
		}
	}
	id := auth.ActiveMemberID(r.Context())
	return id, id != 0
}

// ListAvailable handles GET /api/assignments/available.
func (h *AssignmentHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	performer, ok := performerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "no family member selected")
		return
	}

	entries, err := h.engine.ListAvailable(r.Context(), performer)
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("list available", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if entries == nil {
		entries = []model.TaskAssignment{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Complete handles POST /api/tasks/{id}/complete.
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	performer, ok := performerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "no family member selected")
		return
	}

	a, err := h.engine.Complete(r.Context(), taskID, performer)
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("complete task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListPending handles GET /api/assignments/pending. Parents only.
func (h *AssignmentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.ListPendingApproval(r.Context(), actorFrom(r))
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("list pending", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending completions")
		return
	}
	if pending == nil {
		pending = []model.PendingCompletion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// Approve handles POST /api/assignments/{id}/approve.
func (h *AssignmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		RewardCents *int64 `json:"reward_cents"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	a, err := h.engine.Approve(r.Context(), actorFrom(r), id, req.RewardCents)
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("approve assignment", "assignment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve completion")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Reject handles POST /api/assignments/{id}/reject.
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a, err := h.engine.Reject(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		if writeEngineError(w, err) {
			return
		}
		h.logger.Error("reject assignment", "assignment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reject completion")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
