package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rowanvale/choreboard/internal/model"
)

type AssignmentStore struct {
	db DBTX
}

func NewAssignmentStore(db DBTX) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// WithTx returns an AssignmentStore bound to the given transaction.
func (s *AssignmentStore) WithTx(tx *sql.Tx) *AssignmentStore {
	return &AssignmentStore{db: tx}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var completedAt, approvedAt sql.NullTime
	var reward sql.NullInt64
	var reason sql.NullString

	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.PerformerID, &a.Status,
		&completedAt, &approvedAt, &reward, &reason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		a.CompletedAt = &t
	}
	if approvedAt.Valid {
		t := approvedAt.Time.UTC()
		a.ApprovedAt = &t
	}
	if reward.Valid {
		a.ResolvedRewardCents = &reward.Int64
	}
	if reason.Valid {
		a.RejectionReason = &reason.String
	}
	return &a, nil
}

const assignmentCols = `id, task_id, performer_id, status, completed_at, approved_at, resolved_reward_cents, rejection_reason, created_at, updated_at`

// Create inserts a fresh available assignment for (task, performer).
// A unique index on the pair rejects duplicates; IsConflict identifies
// that failure so a losing pool claim can retry as a plain completion.
func (s *AssignmentStore) Create(taskID, performerID int64) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO assignments (task_id, performer_id) VALUES (?, ?)`,
		taskID, performerID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// IsConflict reports whether err is a unique-constraint violation on the
// (task_id, performer_id) pair.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: assignments.task_id")
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) GetByTaskPerformer(taskID, performerID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? AND performer_id = ?`,
		taskID, performerID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by pair: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListByTask(taskID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? ORDER BY performer_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by task: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (s *AssignmentStore) ListByPerformer(performerID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE performer_id = ? ORDER BY task_id ASC`,
		performerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by performer: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func collectAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListPendingByHousehold returns the approval queue: every pending
// completion in the household joined with its task and performer name.
func (s *AssignmentStore) ListPendingByHousehold(householdID int64) ([]model.PendingCompletion, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.household_id, t.title, t.description, t.reward_mode,
		        t.fixed_reward_cents, t.min_reward_cents, t.max_reward_cents,
		        t.assignment_mode, t.recurrence_rule, t.disabled, t.created_at, t.updated_at,
		        a.id, a.task_id, a.performer_id, a.status, a.completed_at, a.approved_at,
		        a.resolved_reward_cents, a.rejection_reason, a.created_at, a.updated_at,
		        m.name
		 FROM assignments a
		 JOIN tasks t ON t.id = a.task_id
		 JOIN family_members m ON m.id = a.performer_id
		 WHERE t.household_id = ? AND a.status = ?
		 ORDER BY a.completed_at ASC`,
		householdID, model.StatusPendingApproval,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingCompletion
	for rows.Next() {
		var p model.PendingCompletion
		var disabled int
		var completedAt, approvedAt sql.NullTime
		var reward sql.NullInt64
		var reason sql.NullString

		err := rows.Scan(
			&p.Task.ID, &p.Task.HouseholdID, &p.Task.Title, &p.Task.Description,
			&p.Task.RewardMode, &p.Task.FixedRewardCents, &p.Task.MinRewardCents, &p.Task.MaxRewardCents,
			&p.Task.AssignmentMode, &p.Task.RecurrenceRule, &disabled,
			&p.Task.CreatedAt, &p.Task.UpdatedAt,
			&p.Assignment.ID, &p.Assignment.TaskID, &p.Assignment.PerformerID, &p.Assignment.Status,
			&completedAt, &approvedAt, &reward, &reason,
			&p.Assignment.CreatedAt, &p.Assignment.UpdatedAt,
			&p.PerformerName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending approval: %w", err)
		}

		p.Task.Disabled = disabled != 0
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			p.Assignment.CompletedAt = &t
		}
		if approvedAt.Valid {
			t := approvedAt.Time.UTC()
			p.Assignment.ApprovedAt = &t
		}
		if reward.Valid {
			p.Assignment.ResolvedRewardCents = &reward.Int64
		}
		if reason.Valid {
			p.Assignment.RejectionReason = &reason.String
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkPending moves the assignment into pending_approval with the given
// completion time. The previous rejection reason is kept; only the next
// rejection overwrites it.
func (s *AssignmentStore) MarkPending(id int64, completedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_at = ?, approved_at = NULL, resolved_reward_cents = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusPendingApproval, completedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	return nil
}

// MarkApproved records the approval instant and the resolved reward.
func (s *AssignmentStore) MarkApproved(id int64, approvedAt time.Time, rewardCents int64) error {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, approved_at = ?, resolved_reward_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusApproved, approvedAt.UTC(), rewardCents, id,
	)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return nil
}

// MarkRejected clears the completion and stores the rejection reason.
func (s *AssignmentStore) MarkRejected(id int64, reason string) error {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_at = NULL, approved_at = NULL, resolved_reward_cents = NULL, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusRejected, reason, id,
	)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	return nil
}

// Reset returns a fixed-topology assignment to available for its next cycle.
func (s *AssignmentStore) Reset(id int64) error {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_at = NULL, approved_at = NULL, resolved_reward_cents = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusAvailable, id,
	)
	if err != nil {
		return fmt.Errorf("reset assignment: %w", err)
	}
	return nil
}

// Delete removes a pool assignment whose cooldown has elapsed, returning the
// (task, performer) pair to a never-claimed state.
func (s *AssignmentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
