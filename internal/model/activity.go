package model

import "time"

// Activity verbs.
const (
	ActivityCompleted = "completed"
	ActivityApproved  = "approved"
	ActivityRejected  = "rejected"
	ActivityRedeemed  = "redeemed"
)

// ActivityEntry is one line of the household activity feed. Entries are
// written best-effort after the fact; losing one never rolls back the
// transition it describes.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	MemberID    *int64    `json:"member_id"`
	TaskID      *int64    `json:"task_id"`
	Verb        string    `json:"verb"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}
