package assignment

import (
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

// ResolveReward decides the amount to credit at approval time. Fixed tasks
// pay their configured reward and reject a supplied value outright rather
// than silently ignoring it; range tasks require the approver to pick a
// value within bounds.
func ResolveReward(task model.Task, suppliedCents *int64) (int64, error) {
	switch task.RewardMode {
	case model.RewardFixed:
		if suppliedCents != nil {
			return 0, ErrUnexpectedValue
		}
		return task.FixedRewardCents, nil

	case model.RewardRange:
		if suppliedCents == nil {
			return 0, ErrMissingRewardValue
		}
		if *suppliedCents < task.MinRewardCents || *suppliedCents > task.MaxRewardCents {
			return 0, &RewardOutOfRangeError{
				SuppliedCents: *suppliedCents,
				MinCents:      task.MinRewardCents,
				MaxCents:      task.MaxRewardCents,
			}
		}
		return *suppliedCents, nil
	}

	return 0, fmt.Errorf("unknown reward mode %q", task.RewardMode)
}
