package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/rowanvale/choreboard/internal/model"
)

// ListAvailable answers "what can this performer do right now". Disabled
// and excluded tasks never appear. Pool claims are independent per
// performer: only this performer's own claim can hide a pool task from
// them, and their expired claim row is purged here so the pair reads as
// never claimed.
func (s *Service) ListAvailable(ctx context.Context, performerID int64) ([]model.TaskAssignment, error) {
	now := s.now().UTC()

	member, err := s.members.GetByID(performerID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("family member %d not found", performerID)
	}

	tasks, err := s.tasks.ListByHousehold(member.HouseholdID)
	if err != nil {
		return nil, err
	}

	excluded, err := s.visibility.ExcludedTaskIDs(performerID)
	if err != nil {
		return nil, err
	}

	var out []model.TaskAssignment
	for i := range tasks {
		task := tasks[i]
		if task.Disabled || excluded[task.ID] {
			continue
		}

		if task.AssignmentMode == model.ModePool {
			ta, ok, err := s.poolEntry(task, performerID, now)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, ta)
			}
			continue
		}

		a, err := s.assignments.GetByTaskPerformer(task.ID, performerID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}
		if eff, _ := EffectiveStatus(task, *a, now); eff == EffAvailable {
			out = append(out, model.TaskAssignment{Task: task, Assignment: a})
		}
	}
	return out, nil
}

// poolEntry decides whether a pool task is open for one performer. Other
// performers' claims never matter; each (task, performer) pair runs its
// own lifecycle. An expired claim row is purged on the spot, a live one
// (pending, cooling, or a spent one-shot) hides the task, and a rejected
// one surfaces alongside the task so the performer can redo it.
func (s *Service) poolEntry(task model.Task, performerID int64, now time.Time) (model.TaskAssignment, bool, error) {
	a, err := s.assignments.GetByTaskPerformer(task.ID, performerID)
	if err != nil {
		return model.TaskAssignment{}, false, err
	}
	if a != nil && poolExpired(task, *a, now) {
		if err := s.assignments.Delete(a.ID); err != nil {
			return model.TaskAssignment{}, false, err
		}
		a = nil
	}
	if a == nil {
		return model.TaskAssignment{Task: task, Assignment: nil}, true, nil
	}
	switch eff, _ := EffectiveStatus(task, *a, now); eff {
	case EffPending, EffCooling, EffDone:
		return model.TaskAssignment{}, false, nil
	}
	return model.TaskAssignment{Task: task, Assignment: a}, true, nil
}

// ListPendingApproval returns the household's completions awaiting a
// parent's verdict, oldest first.
func (s *Service) ListPendingApproval(ctx context.Context, actor Actor) ([]model.PendingCompletion, error) {
	if !actor.Parent {
		return nil, ErrNotAuthorized
	}
	return s.assignments.ListPendingByHousehold(actor.HouseholdID)
}
