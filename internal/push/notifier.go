package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
)

// Notifier fans a notification out to every device in a household. It is
// driven by lifecycle events, not a polling loop; a transition that needs
// attention pushes immediately.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: service,
		subs:    subs,
		logger:  logger,
	}
}

// ApprovalNeeded tells the household's parents a completion is waiting.
func (n *Notifier) ApprovalNeeded(householdID int64, taskTitle, performerName string) {
	n.broadcast(householdID, Payload{
		Title: "Approval needed",
		Body:  fmt.Sprintf("%s finished %q", performerName, taskTitle),
		URL:   "/approvals",
		Tag:   model.NotifTypeApprovalNeeded,
	})
}

// CompletionApproved celebrates an approval with the household.
func (n *Notifier) CompletionApproved(householdID int64, taskTitle string, rewardCents int64) {
	n.broadcast(householdID, Payload{
		Title: "Chore approved",
		Body:  fmt.Sprintf("%q approved for $%d.%02d", taskTitle, rewardCents/100, rewardCents%100),
		URL:   "/tasks",
		Tag:   model.NotifTypeApproved,
	})
}

// CompletionRejected tells the performer to take another pass.
func (n *Notifier) CompletionRejected(householdID int64, taskTitle, reason string) {
	n.broadcast(householdID, Payload{
		Title: "Needs another look",
		Body:  fmt.Sprintf("%q sent back: %s", taskTitle, reason),
		URL:   "/tasks",
		Tag:   model.NotifTypeRejected,
	})
}

// broadcast delivers the payload to every subscription in the household,
// pruning any the push service reports as gone. Failures are logged and
// swallowed; notifications never fail a lifecycle transition.
func (n *Notifier) broadcast(householdID int64, payload Payload) {
	subs, err := n.subs.ListByHousehold(householdID)
	if err != nil {
		n.logger.Error("list push subscriptions", "household_id", householdID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := range subs {
		sub := subs[i]
		if err := n.service.Send(ctx, &sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send push", "subscription_id", sub.ID, "error", err)
		}
	}
}
