package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/recurrence"
	"github.com/rowanvale/choreboard/internal/store"
)

// maxReasonLen bounds rejection reasons.
const maxReasonLen = 500

// Actor identifies who is driving a mutation. Parents approve, reject, and
// author; performers complete. The HTTP layer builds this from the session.
type Actor struct {
	HouseholdID int64
	Parent      bool
}

// Events receives fire-and-forget notifications after a transition commits.
// Implementations must not block; failures never roll back a transition.
type Events interface {
	TaskCompleted(task model.Task, a model.Assignment, performerID int64)
	CompletionApproved(task model.Task, a model.Assignment, performerID int64)
	CompletionRejected(task model.Task, a model.Assignment, performerID int64, reason string)
}

// Service owns the assignment lifecycle: authoring-time topology rules,
// the per-(task, performer) state machine, and pool-claim concurrency.
// Every mutation runs in a single transaction; "available again" is derived
// at read time, never flipped by a timer.
type Service struct {
	db          *sql.DB
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	visibility  *store.VisibilityStore
	ledger      *store.LedgerStore
	members     *store.FamilyMemberStore
	events      Events
	logger      *slog.Logger

	now func() time.Time // swapped in tests
}

func NewService(db *sql.DB, events Events, logger *slog.Logger) *Service {
	return &Service{
		db:          db,
		tasks:       store.NewTaskStore(db),
		assignments: store.NewAssignmentStore(db),
		visibility:  store.NewVisibilityStore(db),
		ledger:      store.NewLedgerStore(db),
		members:     store.NewFamilyMemberStore(db),
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTaskInput carries everything a parent supplies when authoring a
// task. PerformerIDs must match the assignment mode: exactly one for
// single, one or more for multi, none for pool.
type CreateTaskInput struct {
	HouseholdID      int64
	Title            string
	Description      string
	RewardMode       string
	FixedRewardCents int64
	MinRewardCents   int64
	MaxRewardCents   int64
	AssignmentMode   string
	RecurrenceRule   string
	PerformerIDs     []int64
}

func (in *CreateTaskInput) validate() error {
	switch in.AssignmentMode {
	case model.ModeSingle:
		if len(in.PerformerIDs) != 1 {
			return &ModeConfigError{Mode: in.AssignmentMode, Performers: len(in.PerformerIDs)}
		}
	case model.ModeMulti:
		if len(in.PerformerIDs) < 1 {
			return &ModeConfigError{Mode: in.AssignmentMode, Performers: len(in.PerformerIDs)}
		}
	case model.ModePool:
		if len(in.PerformerIDs) != 0 {
			return &ModeConfigError{Mode: in.AssignmentMode, Performers: len(in.PerformerIDs)}
		}
	default:
		return &ModeConfigError{Mode: in.AssignmentMode, Performers: len(in.PerformerIDs)}
	}

	switch in.RewardMode {
	case model.RewardFixed:
		if in.FixedRewardCents < 0 {
			return fmt.Errorf("fixed reward must not be negative")
		}
	case model.RewardRange:
		if in.MinRewardCents < 0 || in.MinRewardCents > in.MaxRewardCents {
			return fmt.Errorf("reward range requires 0 <= min <= max")
		}
	default:
		return fmt.Errorf("unknown reward mode %q", in.RewardMode)
	}

	if _, err := recurrence.Parse(in.RecurrenceRule); err != nil {
		return fmt.Errorf("invalid recurrence rule: %w", err)
	}
	return nil
}

// CreateTask authors a task and, for fixed topologies, its assignment rows
// in one transaction. Configuration errors reject the whole operation; no
// partial task is ever created.
func (s *Service) CreateTask(ctx context.Context, actor Actor, in CreateTaskInput) (*model.Task, error) {
	if !actor.Parent || actor.HouseholdID != in.HouseholdID {
		return nil, ErrNotAuthorized
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *model.Task
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, pid := range in.PerformerIDs {
			m, err := s.members.GetByID(pid)
			if err != nil {
				return err
			}
			if m == nil || m.HouseholdID != in.HouseholdID {
				return fmt.Errorf("performer %d not in household", pid)
			}
		}

		task, err := s.tasks.WithTx(tx).Create(&model.Task{
			HouseholdID:      in.HouseholdID,
			Title:            in.Title,
			Description:      in.Description,
			RewardMode:       in.RewardMode,
			FixedRewardCents: in.FixedRewardCents,
			MinRewardCents:   in.MinRewardCents,
			MaxRewardCents:   in.MaxRewardCents,
			AssignmentMode:   in.AssignmentMode,
			RecurrenceRule:   in.RecurrenceRule,
		})
		if err != nil {
			return err
		}

		// Pool tasks start with no assignments; rows appear on first claim.
		for _, pid := range in.PerformerIDs {
			if _, err := s.assignments.WithTx(tx).Create(task.ID, pid); err != nil {
				return err
			}
		}

		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", created.ID, "mode", created.AssignmentMode)
	return created, nil
}

// Complete moves a performer's assignment from available to
// pending_approval. For pool tasks with no existing row this is a claim:
// the row is created and driven to pending in the same transaction, and a
// lost race against the unique (task, performer) index surfaces as
// ErrConflict so the caller can retry as a plain completion.
func (s *Service) Complete(ctx context.Context, taskID, performerID int64) (*model.Assignment, error) {
	now := s.now().UTC()

	var (
		result *model.Assignment
		task   *model.Task
	)
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		assignments := s.assignments.WithTx(tx)

		var err error
		task, err = tasks.GetByID(taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrTaskNotFound
		}

		// A performer from another household learns nothing: the task does
		// not exist for them.
		member, err := s.members.GetByID(performerID)
		if err != nil {
			return err
		}
		if member == nil || member.HouseholdID != task.HouseholdID {
			return ErrTaskNotFound
		}

		// Excluded performers get the same answer as a missing task.
		excluded, err := s.visibility.WithTx(tx).IsExcluded(taskID, performerID)
		if err != nil {
			return err
		}
		if excluded {
			return ErrTaskNotFound
		}

		if task.Disabled {
			return ErrTaskDisabled
		}

		a, err := assignments.GetByTaskPerformer(taskID, performerID)
		if err != nil {
			return err
		}

		// An expired pool claim reads as never claimed; drop the old row so
		// the new cycle starts clean, with no leftover rejection reason.
		if a != nil && poolExpired(*task, *a, now) {
			if err := assignments.Delete(a.ID); err != nil {
				return err
			}
			a = nil
		}

		if a == nil {
			if task.AssignmentMode != model.ModePool {
				// Not assigned to this performer; indistinguishable from hidden.
				return ErrTaskNotFound
			}
			a, err = assignments.Create(taskID, performerID)
			if err != nil {
				if store.IsConflict(err) {
					return ErrConflict
				}
				return err
			}
		}

		switch eff, until := EffectiveStatus(*task, *a, now); eff {
		case EffPending:
			return ErrAlreadyCompleted
		case EffCooling:
			return &InCooldownError{Until: until}
		case EffDone:
			return &InCooldownError{}
		}

		if err := assignments.MarkPending(a.ID, now); err != nil {
			return err
		}
		result, err = assignments.GetByID(a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.TaskCompleted(*task, *result, performerID)
	}
	return result, nil
}

// Approve resolves the reward, records the approval instant, and credits
// the performer's ledger in the same transaction. Approving an
// already-approved assignment returns the stored result without a second
// credit.
func (s *Service) Approve(ctx context.Context, actor Actor, assignmentID int64, suppliedCents *int64) (*model.Assignment, error) {
	now := s.now().UTC()

	var (
		result    *model.Assignment
		task      *model.Task
		reapprove bool
	)
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		assignments := s.assignments.WithTx(tx)

		a, err := assignments.GetByID(assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAssignmentNotFound
		}

		task, err = s.tasks.WithTx(tx).GetByID(a.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrAssignmentNotFound
		}
		if !actor.Parent || actor.HouseholdID != task.HouseholdID {
			return ErrNotAuthorized
		}

		if a.Status == model.StatusApproved {
			// Idempotent retry: hand back the resolved state, credit nothing.
			result, reapprove = a, true
			return nil
		}
		if a.Status != model.StatusPendingApproval {
			return ErrNotPendingApproval
		}

		reward, err := ResolveReward(*task, suppliedCents)
		if err != nil {
			return err
		}

		if err := assignments.MarkApproved(a.ID, now, reward); err != nil {
			return err
		}

		correlationID := uuid.NewString()
		if _, err := s.ledger.WithTx(tx).Credit(a.PerformerID, reward, correlationID, a.ID, task.Title); err != nil {
			return err
		}

		result, err = assignments.GetByID(a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !reapprove && s.events != nil {
		s.events.CompletionApproved(*task, *result, result.PerformerID)
	}
	return result, nil
}

// Reject sends a pending completion back to the performer. The reason is
// mandatory and kept on the assignment until the next rejection overwrites
// it; the assignment is immediately available to redo.
func (s *Service) Reject(ctx context.Context, actor Actor, assignmentID int64, reason string) (*model.Assignment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}
	if len(reason) > maxReasonLen {
		return nil, ErrReasonTooLong
	}

	var (
		result *model.Task
		out    *model.Assignment
	)
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		assignments := s.assignments.WithTx(tx)

		a, err := assignments.GetByID(assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAssignmentNotFound
		}

		result, err = s.tasks.WithTx(tx).GetByID(a.TaskID)
		if err != nil {
			return err
		}
		if result == nil {
			return ErrAssignmentNotFound
		}
		if !actor.Parent || actor.HouseholdID != result.HouseholdID {
			return ErrNotAuthorized
		}

		if a.Status != model.StatusPendingApproval {
			return ErrNotPendingApproval
		}

		if err := assignments.MarkRejected(a.ID, reason); err != nil {
			return err
		}
		out, err = assignments.GetByID(a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.CompletionRejected(*result, *out, out.PerformerID, reason)
	}
	return out, nil
}

// SetVisibility hides or reveals a task for a performer. Idempotent.
func (s *Service) SetVisibility(ctx context.Context, actor Actor, taskID, performerID int64, excluded bool) error {
	task, err := s.tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if !actor.Parent || actor.HouseholdID != task.HouseholdID {
		return ErrNotAuthorized
	}

	m, err := s.members.GetByID(performerID)
	if err != nil {
		return err
	}
	if m == nil || m.HouseholdID != task.HouseholdID {
		return fmt.Errorf("performer %d not in household", performerID)
	}

	if excluded {
		return s.visibility.Exclude(taskID, performerID)
	}
	return s.visibility.Include(taskID, performerID)
}
