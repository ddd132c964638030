package model

import "time"

// Reward modes.
const (
	RewardFixed = "fixed"
	RewardRange = "range"
)

// Assignment topologies.
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
	ModePool   = "pool"
)

// Task is a chore template. Rewards are stored as integer cents; for
// RewardRange tasks the approver picks a value within [MinRewardCents,
// MaxRewardCents] at approval time.
type Task struct {
	ID               int64     `json:"id"`
	HouseholdID      int64     `json:"household_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	RewardMode       string    `json:"reward_mode"`
	FixedRewardCents int64     `json:"fixed_reward_cents,omitempty"`
	MinRewardCents   int64     `json:"min_reward_cents,omitempty"`
	MaxRewardCents   int64     `json:"max_reward_cents,omitempty"`
	AssignmentMode   string    `json:"assignment_mode"`
	RecurrenceRule   string    `json:"recurrence_rule"`
	Disabled         bool      `json:"disabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Assignment statuses as stored. The externally visible status is derived
// lazily: an approved assignment whose cooldown has elapsed reads as
// available again, and "rejected" reads as available.
const (
	StatusAvailable       = "available"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
)

// Assignment is one performer's relationship to one task. At most one row
// exists per (task, performer). Pool-mode rows are created on first claim
// and deleted once their post-approval cooldown elapses.
type Assignment struct {
	ID                  int64      `json:"id"`
	TaskID              int64      `json:"task_id"`
	PerformerID         int64      `json:"performer_id"`
	Status              string     `json:"status"`
	CompletedAt         *time.Time `json:"completed_at"`
	ApprovedAt          *time.Time `json:"approved_at"`
	ResolvedRewardCents *int64     `json:"resolved_reward_cents"`
	RejectionReason     *string    `json:"rejection_reason"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// VisibilityExclusion hides a task from a performer. Absence of a row means
// the task is visible.
type VisibilityExclusion struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	PerformerID int64     `json:"performer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskAssignment pairs a task with a performer's assignment for listings.
// Assignment is nil for pool tasks the performer has never claimed.
type TaskAssignment struct {
	Task       Task        `json:"task"`
	Assignment *Assignment `json:"assignment"`
}

// PendingCompletion is one row of the approval queue.
type PendingCompletion struct {
	Task          Task       `json:"task"`
	Assignment    Assignment `json:"assignment"`
	PerformerName string     `json:"performer_name"`
}
