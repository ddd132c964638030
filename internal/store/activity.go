package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Append(e model.ActivityEntry) error {
	var memberID, taskID sql.NullInt64
	if e.MemberID != nil {
		memberID = sql.NullInt64{Int64: *e.MemberID, Valid: true}
	}
	if e.TaskID != nil {
		taskID = sql.NullInt64{Int64: *e.TaskID, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO activity_log (household_id, member_id, task_id, verb, detail) VALUES (?, ?, ?, ?, ?)`,
		e.HouseholdID, memberID, taskID, e.Verb, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) ListRecent(householdID int64, limit int) ([]model.ActivityEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, household_id, member_id, task_id, verb, detail, created_at
		 FROM activity_log WHERE household_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		householdID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		var memberID, taskID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.HouseholdID, &memberID, &taskID, &e.Verb, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if memberID.Valid {
			e.MemberID = &memberID.Int64
		}
		if taskID.Valid {
			e.TaskID = &taskID.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
