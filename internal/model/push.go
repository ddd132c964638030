package model

import "time"

// Notification tags. The service worker collapses notifications sharing
// a tag, so repeated events replace instead of stack.
const (
	NotifTypeApprovalNeeded = "approval_needed"
	NotifTypeApproved       = "completion_approved"
	NotifTypeRejected       = "completion_rejected"
)

// PushSubscription is one browser's push endpoint, scoped to the login
// user that registered it so a shared kiosk device subscribes once.
type PushSubscription struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	HouseholdID int64     `json:"household_id"`
	Endpoint    string    `json:"endpoint"`
	P256dhKey   string    `json:"p256dh_key"`
	AuthKey     string    `json:"auth_key"`
	DeviceName  string    `json:"device_name"`
	CreatedAt   time.Time `json:"created_at"`
}
