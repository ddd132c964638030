package store

import (
	"database/sql"
	"fmt"
)

type VisibilityStore struct {
	db DBTX
}

func NewVisibilityStore(db DBTX) *VisibilityStore {
	return &VisibilityStore{db: db}
}

// WithTx returns a VisibilityStore bound to the given transaction.
func (s *VisibilityStore) WithTx(tx *sql.Tx) *VisibilityStore {
	return &VisibilityStore{db: tx}
}

// Exclude hides the task from the performer. Idempotent.
func (s *VisibilityStore) Exclude(taskID, performerID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO visibility_exclusions (task_id, performer_id) VALUES (?, ?)`,
		taskID, performerID,
	)
	if err != nil {
		return fmt.Errorf("insert exclusion: %w", err)
	}
	return nil
}

// Include removes the exclusion if present. Idempotent.
func (s *VisibilityStore) Include(taskID, performerID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM visibility_exclusions WHERE task_id = ? AND performer_id = ?`,
		taskID, performerID,
	)
	if err != nil {
		return fmt.Errorf("delete exclusion: %w", err)
	}
	return nil
}

// IsExcluded reports whether an exclusion row exists for the pair.
func (s *VisibilityStore) IsExcluded(taskID, performerID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM visibility_exclusions WHERE task_id = ? AND performer_id = ?`,
		taskID, performerID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check exclusion: %w", err)
	}
	return count > 0, nil
}

// ExcludedTaskIDs returns the set of task ids hidden from the performer.
func (s *VisibilityStore) ExcludedTaskIDs(performerID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT task_id FROM visibility_exclusions WHERE performer_id = ?`,
		performerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	excluded := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		excluded[id] = true
	}
	return excluded, rows.Err()
}
