// Package activity fans lifecycle events out to the household: the
// activity feed, connected WebSocket clients, and push subscribers.
// Everything here is best-effort; a delivery failure is logged and
// forgotten, never surfaced to the transition that caused it.
package activity

import (
	"fmt"
	"log/slog"

	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/push"
	"github.com/rowanvale/choreboard/internal/store"
	"github.com/rowanvale/choreboard/internal/websocket"
)

// Recorder implements the assignment engine's event hooks.
type Recorder struct {
	activity *store.ActivityStore
	members  *store.FamilyMemberStore
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewRecorder(activity *store.ActivityStore, members *store.FamilyMemberStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *Recorder {
	return &Recorder{
		activity: activity,
		members:  members,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
	}
}

func (r *Recorder) TaskCompleted(task model.Task, a model.Assignment, performerID int64) {
	name := r.performerName(performerID)
	r.append(task, performerID, model.ActivityCompleted, fmt.Sprintf("%s finished %q", name, task.Title))
	r.broadcast(task.HouseholdID, "assignment", "completed", a.ID, map[string]any{"task_id": task.ID})
	if r.notifier != nil {
		r.notifier.ApprovalNeeded(task.HouseholdID, task.Title, name)
	}
}

func (r *Recorder) CompletionApproved(task model.Task, a model.Assignment, performerID int64) {
	name := r.performerName(performerID)
	var reward int64
	if a.ResolvedRewardCents != nil {
		reward = *a.ResolvedRewardCents
	}
	r.append(task, performerID, model.ActivityApproved, fmt.Sprintf("%s earned $%d.%02d for %q", name, reward/100, reward%100, task.Title))
	r.broadcast(task.HouseholdID, "assignment", "approved", a.ID, map[string]any{"task_id": task.ID})
	if r.notifier != nil {
		r.notifier.CompletionApproved(task.HouseholdID, task.Title, reward)
	}
}

func (r *Recorder) CompletionRejected(task model.Task, a model.Assignment, performerID int64, reason string) {
	name := r.performerName(performerID)
	r.append(task, performerID, model.ActivityRejected, fmt.Sprintf("%s's %q sent back: %s", name, task.Title, reason))
	r.broadcast(task.HouseholdID, "assignment", "rejected", a.ID, map[string]any{"task_id": task.ID})
	if r.notifier != nil {
		r.notifier.CompletionRejected(task.HouseholdID, task.Title, reason)
	}
}

// RewardRedeemed records a catalog redemption on the feed.
func (r *Recorder) RewardRedeemed(householdID, memberID int64, rewardTitle string, costCents int64) {
	name := r.performerName(memberID)
	err := r.activity.Append(model.ActivityEntry{
		HouseholdID: householdID,
		MemberID:    &memberID,
		Verb:        model.ActivityRedeemed,
		Detail:      fmt.Sprintf("%s redeemed %q for $%d.%02d", name, rewardTitle, costCents/100, costCents%100),
	})
	if err != nil {
		r.logger.Error("append activity", "error", err)
	}
	r.broadcast(householdID, "reward", "redeemed", memberID, nil)
}

func (r *Recorder) append(task model.Task, performerID int64, verb, detail string) {
	err := r.activity.Append(model.ActivityEntry{
		HouseholdID: task.HouseholdID,
		MemberID:    &performerID,
		TaskID:      &task.ID,
		Verb:        verb,
		Detail:      detail,
	})
	if err != nil {
		r.logger.Error("append activity", "verb", verb, "task_id", task.ID, "error", err)
	}
}

func (r *Recorder) broadcast(householdID int64, entity, action string, id int64, extra map[string]any) {
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(householdID, websocket.NewMessage(entity, action, id, extra))
}

func (r *Recorder) performerName(memberID int64) string {
	m, err := r.members.GetByID(memberID)
	if err != nil || m == nil {
		return "Someone"
	}
	return m.Name
}
