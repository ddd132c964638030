package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rowanvale/choreboard/internal/auth"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
)

type ActivityHandler struct {
	activity *store.ActivityStore
	logger   *slog.Logger
}

func NewActivityHandler(activity *store.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// List handles GET /api/activity?limit=n (default 50, max 200).
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	entries, err := h.activity.ListRecent(auth.HouseholdID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
