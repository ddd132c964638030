package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

type TaskStore struct {
	db DBTX
}

func NewTaskStore(db DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// WithTx returns a TaskStore bound to the given transaction.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return &TaskStore{db: tx}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var disabled int

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description,
		&t.RewardMode, &t.FixedRewardCents, &t.MinRewardCents, &t.MaxRewardCents,
		&t.AssignmentMode, &t.RecurrenceRule, &disabled,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Disabled = disabled != 0
	return &t, nil
}

const taskCols = `id, household_id, title, description, reward_mode, fixed_reward_cents, min_reward_cents, max_reward_cents, assignment_mode, recurrence_rule, disabled, created_at, updated_at`

func (s *TaskStore) Create(t *model.Task) (*model.Task, error) {
	var disabled int
	if t.Disabled {
		disabled = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (household_id, title, description, reward_mode, fixed_reward_cents, min_reward_cents, max_reward_cents, assignment_mode, recurrence_rule, disabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.HouseholdID, t.Title, t.Description, t.RewardMode,
		t.FixedRewardCents, t.MinRewardCents, t.MaxRewardCents,
		t.AssignmentMode, t.RecurrenceRule, disabled,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update edits the task's title, description, reward, and recurrence. The
// assignment mode is fixed at authoring time.
func (s *TaskStore) Update(t *model.Task) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, reward_mode = ?, fixed_reward_cents = ?, min_reward_cents = ?, max_reward_cents = ?, recurrence_rule = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Title, t.Description, t.RewardMode,
		t.FixedRewardCents, t.MinRewardCents, t.MaxRewardCents,
		t.RecurrenceRule, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(t.ID)
}

func (s *TaskStore) SetDisabled(id int64, disabled bool) error {
	var d int
	if disabled {
		d = 1
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET disabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		d, id,
	)
	if err != nil {
		return fmt.Errorf("set task disabled: %w", err)
	}
	return nil
}

// Delete removes the task; assignments and visibility exclusions cascade.
func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
