package assignment

import (
	"log/slog"
	"time"

	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/recurrence"
)

// Effective is the externally visible state of an assignment at one instant.
type Effective string

const (
	// EffAvailable covers stored available, rejected (a historical marker,
	// not a gate), and approved rows whose cooldown has elapsed.
	EffAvailable Effective = "available"
	EffPending   Effective = "pending_approval"
	// EffCooling is an approved assignment still inside its cooldown.
	EffCooling Effective = "cooling_down"
	// EffDone is a one-shot approval that never reopens.
	EffDone Effective = "done"
)

// EffectiveStatus derives an assignment's state at now from its stored
// fields and the task's recurrence rule. There is no background job
// flipping statuses; every read and mutation calls this instead. The second
// return is the instant the assignment reopens, nil when not cooling down.
func EffectiveStatus(task model.Task, a model.Assignment, now time.Time) (Effective, *time.Time) {
	switch a.Status {
	case model.StatusPendingApproval:
		return EffPending, nil

	case model.StatusApproved:
		rule, err := recurrence.Parse(task.RecurrenceRule)
		if err != nil {
			// A rule that fails to parse was rejected at authoring time;
			// treat a corrupted one as one-shot rather than guessing.
			slog.Error("invalid recurrence rule", "task_id", task.ID, "rule", task.RecurrenceRule, "error", err)
			return EffDone, nil
		}
		if a.ApprovedAt == nil {
			return EffDone, nil
		}
		next, recurs := recurrence.NextAvailable(rule, *a.ApprovedAt)
		if !recurs {
			return EffDone, nil
		}
		if now.UTC().Before(next) {
			return EffCooling, &next
		}
		return EffAvailable, nil
	}

	return EffAvailable, nil
}

// poolExpired reports whether a pool assignment row has served out its
// cooldown and should be deleted, returning the pair to a never-claimed
// state.
func poolExpired(task model.Task, a model.Assignment, now time.Time) bool {
	if task.AssignmentMode != model.ModePool || a.Status != model.StatusApproved {
		return false
	}
	eff, _ := EffectiveStatus(task, a, now)
	return eff == EffAvailable
}
