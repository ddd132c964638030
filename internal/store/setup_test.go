package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rowanvale/choreboard/internal/database"
	"github.com/rowanvale/choreboard/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHousehold(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	h, err := NewHouseholdStore(db).Create("Testhold")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h.ID
}

func seedMember(t *testing.T, db *sql.DB, householdID int64, name string) int64 {
	t.Helper()
	m, err := NewFamilyMemberStore(db).Create(householdID, name, model.RoleChild, "#aabbcc", "🦔")
	if err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	return m.ID
}

func seedTask(t *testing.T, db *sql.DB, householdID int64, title, mode string) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(&model.Task{
		HouseholdID:      householdID,
		Title:            title,
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 250,
		AssignmentMode:   mode,
	})
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}
