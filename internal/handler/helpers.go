package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rowanvale/choreboard/internal/assignment"
)

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps lifecycle engine failures onto HTTP responses.
// Anything unrecognized is a storage fault and answers 500.
func writeEngineError(w http.ResponseWriter, err error) bool {
	var (
		cool *assignment.InCooldownError
		oor  *assignment.RewardOutOfRangeError
		mode *assignment.ModeConfigError
	)
	switch {
	case errors.Is(err, assignment.ErrTaskNotFound),
		errors.Is(err, assignment.ErrAssignmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assignment.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, assignment.ErrAlreadyCompleted),
		errors.Is(err, assignment.ErrNotPendingApproval),
		errors.Is(err, assignment.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, assignment.ErrTaskDisabled),
		errors.Is(err, assignment.ErrMissingReason),
		errors.Is(err, assignment.ErrReasonTooLong),
		errors.Is(err, assignment.ErrMissingRewardValue),
		errors.Is(err, assignment.ErrUnexpectedValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cool):
		body := map[string]any{"error": err.Error()}
		if cool.Until != nil {
			body["available_at"] = cool.Until.Format(time.RFC3339)
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &oor):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     err.Error(),
			"min_cents": oor.MinCents,
			"max_cents": oor.MaxCents,
		})
	case errors.As(err, &mode):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		return false
	}
	return true
}
