package assignment

import (
	"errors"
	"fmt"
	"time"
)

// Business failures are typed values the API layer maps to responses.
// Anything else bubbling out of the engine is a storage fault.
var (
	// ErrTaskNotFound is also returned when a task is hidden from the
	// caller: a performer must not be able to distinguish "excluded"
	// from "does not exist".
	ErrTaskNotFound = errors.New("task not found")

	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrTaskDisabled       = errors.New("task is disabled")
	ErrAlreadyCompleted   = errors.New("completion already awaiting approval")
	ErrNotPendingApproval = errors.New("assignment is not awaiting approval")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrMissingReason      = errors.New("rejection reason is required")
	ErrReasonTooLong      = errors.New("rejection reason too long")

	// ErrConflict means a concurrent mutation won the race for the same
	// assignment. The caller can safely retry.
	ErrConflict = errors.New("concurrent modification conflict")

	ErrMissingRewardValue = errors.New("reward value is required for range tasks")
	ErrUnexpectedValue    = errors.New("fixed-reward tasks do not accept a reward value")
)

// InCooldownError reports a completion attempt before the assignment's
// cooldown elapsed. Until is nil for one-shot tasks, which never reopen.
type InCooldownError struct {
	Until *time.Time
}

func (e *InCooldownError) Error() string {
	if e.Until == nil {
		return "task already completed"
	}
	return fmt.Sprintf("task available again at %s", e.Until.Format(time.RFC3339))
}

// RewardOutOfRangeError reports a supplied reward outside the task's bounds.
type RewardOutOfRangeError struct {
	SuppliedCents int64
	MinCents      int64
	MaxCents      int64
}

func (e *RewardOutOfRangeError) Error() string {
	return fmt.Sprintf("reward %d out of range [%d, %d]", e.SuppliedCents, e.MinCents, e.MaxCents)
}

// ModeConfigError reports an assignment mode whose performer count is
// invalid at authoring time. Authoring is rejected wholesale.
type ModeConfigError struct {
	Mode       string
	Performers int
}

func (e *ModeConfigError) Error() string {
	return fmt.Sprintf("assignment mode %q cannot take %d performers", e.Mode, e.Performers)
}
