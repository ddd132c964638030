package store

import (
	"testing"

	"github.com/rowanvale/choreboard/internal/model"
)

func TestTaskCRUD(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	ts := NewTaskStore(db)

	task, err := ts.Create(&model.Task{
		HouseholdID:      house,
		Title:            "Dishes",
		Description:      "After dinner",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 500,
		AssignmentMode:   model.ModeSingle,
		RecurrenceRule:   "FREQ=DAILY",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected an id")
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Dishes" || got.FixedRewardCents != 500 || got.RecurrenceRule != "FREQ=DAILY" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.Disabled {
		t.Fatal("new task should not be disabled")
	}

	got.Title = "Dinner dishes"
	got.FixedRewardCents = 600
	updated, err := ts.Update(got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Dinner dishes" || updated.FixedRewardCents != 600 {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := ts.SetDisabled(task.ID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, err = ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Disabled {
		t.Fatal("disable not persisted")
	}

	if err := ts.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after delete")
	}
}

func TestTaskGetMissing(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)

	got, err := ts.GetByID(12345)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing task, got %+v", got)
	}
}

func TestTaskListByHousehold(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	other := seedHousehold(t, db)
	ts := NewTaskStore(db)

	seedTask(t, db, house, "Sweep", model.ModeSingle)
	seedTask(t, db, house, "Mop", model.ModePool)
	seedTask(t, db, other, "Elsewhere", model.ModeSingle)

	list, err := ts.ListByHousehold(house)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	for _, task := range list {
		if task.HouseholdID != house {
			t.Fatalf("foreign task leaked into listing: %+v", task)
		}
	}
}

func TestTaskDeleteCascadesAssignments(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	member := seedMember(t, db, house, "Ava")
	task := seedTask(t, db, house, "Trash", model.ModeSingle)

	as := NewAssignmentStore(db)
	if _, err := as.Create(task.ID, member); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if err := NewTaskStore(db).Delete(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	rows, err := as.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("assignments survived task delete: %d rows", len(rows))
	}
}
