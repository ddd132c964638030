package assignment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rowanvale/choreboard/internal/database"
	"github.com/rowanvale/choreboard/internal/model"
	"github.com/rowanvale/choreboard/internal/store"
)

type fixture struct {
	t     *testing.T
	svc   *Service
	house int64
	actor Actor
	ava   int64 // child performer
	ben   int64 // second child performer
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(db, nil, logger)

	house, err := store.NewHouseholdStore(db).Create("Testhold")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	members := store.NewFamilyMemberStore(db)
	ava, err := members.Create(house.ID, "Ava", model.RoleChild, "#ff8800", "🦊")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	ben, err := members.Create(house.ID, "Ben", model.RoleChild, "#0088ff", "🐙")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	return &fixture{
		t:     t,
		svc:   svc,
		house: house.ID,
		actor: Actor{HouseholdID: house.ID, Parent: true},
		ava:   ava.ID,
		ben:   ben.ID,
	}
}

func (f *fixture) setNow(at time.Time) {
	f.svc.now = func() time.Time { return at }
}

func (f *fixture) createTask(in CreateTaskInput) *model.Task {
	f.t.Helper()
	in.HouseholdID = f.house
	task, err := f.svc.CreateTask(context.Background(), f.actor, in)
	if err != nil {
		f.t.Fatalf("create task: %v", err)
	}
	return task
}

func singleTask(performerID int64, rule string) CreateTaskInput {
	return CreateTaskInput{
		Title:            "Dishes",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 500,
		AssignmentMode:   model.ModeSingle,
		RecurrenceRule:   rule,
		PerformerIDs:     []int64{performerID},
	}
}

func cents(v int64) *int64 { return &v }

func TestCreateTaskTopology(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		mode       string
		performers []int64
		wantErr    bool
	}{
		{"single one performer", model.ModeSingle, []int64{f.ava}, false},
		{"single zero performers", model.ModeSingle, nil, true},
		{"single two performers", model.ModeSingle, []int64{f.ava, f.ben}, true},
		{"multi two performers", model.ModeMulti, []int64{f.ava, f.ben}, false},
		{"multi zero performers", model.ModeMulti, nil, true},
		{"pool zero performers", model.ModePool, nil, false},
		{"pool with performer", model.ModePool, []int64{f.ava}, true},
		{"unknown mode", "team", []int64{f.ava}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateTask(ctx, f.actor, CreateTaskInput{
				HouseholdID:      f.house,
				Title:            "Sweep",
				RewardMode:       model.RewardFixed,
				FixedRewardCents: 100,
				AssignmentMode:   tc.mode,
				PerformerIDs:     tc.performers,
			})
			if tc.wantErr {
				var mce *ModeConfigError
				if !errors.As(err, &mce) {
					t.Fatalf("expected ModeConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateTaskMultiSeedsEveryPerformer(t *testing.T) {
	f := setupService(t)

	task := f.createTask(CreateTaskInput{
		Title:            "Laundry",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 300,
		AssignmentMode:   model.ModeMulti,
		PerformerIDs:     []int64{f.ava, f.ben},
	})

	for _, pid := range []int64{f.ava, f.ben} {
		list, err := f.svc.ListAvailable(context.Background(), pid)
		if err != nil {
			t.Fatalf("list available: %v", err)
		}
		if len(list) != 1 || list[0].Task.ID != task.ID {
			t.Fatalf("performer %d: expected task %d available, got %+v", pid, task.ID, list)
		}
		if list[0].Assignment == nil || list[0].Assignment.Status != model.StatusAvailable {
			t.Fatalf("performer %d: expected an available assignment row", pid)
		}
	}
}

func TestCompleteApproveLifecycle(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)) // a Monday

	task := f.createTask(singleTask(f.ava, "FREQ=DAILY"))

	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if a.Status != model.StatusPendingApproval {
		t.Fatalf("status = %q, want pending_approval", a.Status)
	}
	if a.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	// Completing again while pending is rejected.
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	approved, err := f.svc.Approve(ctx, f.actor, a.ID, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}
	if approved.ResolvedRewardCents == nil || *approved.ResolvedRewardCents != 500 {
		t.Fatalf("resolved reward = %v, want 500", approved.ResolvedRewardCents)
	}

	// Inside the daily cooldown: not listed, complete refused with a reopen time.
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected nothing available during cooldown, got %d", len(list))
	}
	_, err = f.svc.Complete(ctx, task.ID, f.ava)
	var cool *InCooldownError
	if !errors.As(err, &cool) {
		t.Fatalf("expected InCooldownError, got %v", err)
	}
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if cool.Until == nil || !cool.Until.Equal(want) {
		t.Fatalf("cooldown until = %v, want %v", cool.Until, want)
	}

	// Next calendar day it reopens without any writes in between.
	f.setNow(time.Date(2026, 3, 3, 0, 0, 1, 0, time.UTC))
	list, err = f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected task available again, got %d entries", len(list))
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); err != nil {
		t.Fatalf("complete after cooldown: %v", err)
	}
}

func TestOneShotNeverReopens(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	task := f.createTask(singleTask(f.ava, ""))

	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	f.setNow(time.Date(2027, 3, 2, 15, 0, 0, 0, time.UTC))
	_, err = f.svc.Complete(ctx, task.ID, f.ava)
	var cool *InCooldownError
	if !errors.As(err, &cool) {
		t.Fatalf("expected InCooldownError, got %v", err)
	}
	if cool.Until != nil {
		t.Fatalf("one-shot cooldown should have no reopen time, got %v", cool.Until)
	}

	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("one-shot task should stay off the list, got %d entries", len(list))
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(singleTask(f.ava, "FREQ=DAILY"))
	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	first, err := f.svc.Approve(ctx, f.actor, a.ID, nil)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	second, err := f.svc.Approve(ctx, f.actor, a.ID, nil)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.ApprovedAt == nil || !second.ApprovedAt.Equal(*first.ApprovedAt) {
		t.Fatalf("retry changed approved_at: %v vs %v", second.ApprovedAt, first.ApprovedAt)
	}

	n, err := f.svc.ledger.CountForAssignment(a.ID)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one credit, got %d", n)
	}
}

func TestApproveRewardResolution(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	rangeTask := f.createTask(CreateTaskInput{
		Title:          "Weed the garden",
		RewardMode:     model.RewardRange,
		MinRewardCents: 100,
		MaxRewardCents: 1000,
		AssignmentMode: model.ModeSingle,
		PerformerIDs:   []int64{f.ava},
	})
	a, err := f.svc.Complete(ctx, rangeTask.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); !errors.Is(err, ErrMissingRewardValue) {
		t.Fatalf("expected ErrMissingRewardValue, got %v", err)
	}
	_, err = f.svc.Approve(ctx, f.actor, a.ID, cents(5000))
	var oor *RewardOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected RewardOutOfRangeError, got %v", err)
	}
	if oor.MinCents != 100 || oor.MaxCents != 1000 {
		t.Fatalf("error bounds = [%d, %d], want [100, 1000]", oor.MinCents, oor.MaxCents)
	}

	approved, err := f.svc.Approve(ctx, f.actor, a.ID, cents(750))
	if err != nil {
		t.Fatalf("approve in range: %v", err)
	}
	if *approved.ResolvedRewardCents != 750 {
		t.Fatalf("resolved reward = %d, want 750", *approved.ResolvedRewardCents)
	}

	// A failed attempt must not leave the assignment half-approved.
	n, err := f.svc.ledger.CountForAssignment(a.ID)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one credit, got %d", n)
	}

	fixed := f.createTask(singleTask(f.ava, ""))
	b, err := f.svc.Complete(ctx, fixed.ID, f.ava)
	if err != nil {
		t.Fatalf("complete fixed: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.actor, b.ID, cents(500)); !errors.Is(err, ErrUnexpectedValue) {
		t.Fatalf("expected ErrUnexpectedValue for supplied fixed reward, got %v", err)
	}
}

func TestRejectFlow(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	task := f.createTask(singleTask(f.ava, "FREQ=DAILY"))
	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.svc.Reject(ctx, f.actor, a.ID, "   "); !errors.Is(err, ErrMissingReason) {
		t.Fatalf("expected ErrMissingReason for blank reason, got %v", err)
	}

	rejected, err := f.svc.Reject(ctx, f.actor, a.ID, "the sink is still full")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.StatusRejected {
		t.Fatalf("status = %q, want rejected", rejected.Status)
	}
	if rejected.CompletedAt != nil {
		t.Fatal("reject should clear completed_at")
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "the sink is still full" {
		t.Fatalf("reason = %v", rejected.RejectionReason)
	}

	// Rejected counts as available: redo immediately, no cooldown.
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("rejected task should be redoable, got %d entries", len(list))
	}
	redo, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("redo after rejection: %v", err)
	}
	if redo.RejectionReason == nil {
		t.Fatal("reason should survive until the next rejection")
	}

	if _, err := f.svc.Reject(ctx, f.actor, redo.ID, "still not done"); err != nil {
		t.Fatalf("second reject: %v", err)
	}
	again, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if *again.RejectionReason != "still not done" {
		t.Fatalf("reason = %q, want the newer one", *again.RejectionReason)
	}
}

func TestRejectApprovedFails(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(singleTask(f.ava, "FREQ=DAILY"))
	a, _ := f.svc.Complete(ctx, task.ID, f.ava)
	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.actor, a.ID, "too late"); !errors.Is(err, ErrNotPendingApproval) {
		t.Fatalf("expected ErrNotPendingApproval, got %v", err)
	}
}

func TestParentAuthorization(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(singleTask(f.ava, ""))
	a, _ := f.svc.Complete(ctx, task.ID, f.ava)

	child := Actor{HouseholdID: f.house, Parent: false}
	stranger := Actor{HouseholdID: f.house + 99, Parent: true}

	if _, err := f.svc.Approve(ctx, child, a.ID, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("child approve: expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, child, a.ID, "no"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("child reject: expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, stranger, a.ID, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("cross-household approve: expected ErrNotAuthorized, got %v", err)
	}
	if err := f.svc.SetVisibility(ctx, child, task.ID, f.ava, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("child visibility change: expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.svc.CreateTask(ctx, child, singleTask(f.ava, "")); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("child create: expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.svc.ListPendingApproval(ctx, child); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("child pending list: expected ErrNotAuthorized, got %v", err)
	}
}

func TestVisibilityHidesWithoutLeaking(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(CreateTaskInput{
		Title:            "Mow the lawn",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 800,
		AssignmentMode:   model.ModeMulti,
		PerformerIDs:     []int64{f.ava, f.ben},
	})

	if err := f.svc.SetVisibility(ctx, f.actor, task.ID, f.ava, true); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	// Excluding twice is a no-op, not an error.
	if err := f.svc.SetVisibility(ctx, f.actor, task.ID, f.ava, true); err != nil {
		t.Fatalf("exclude again: %v", err)
	}

	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("excluded task still listed for Ava")
	}
	list, err = f.svc.ListAvailable(ctx, f.ben)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("exclusion leaked onto Ben's list")
	}

	// The hidden task answers exactly like a missing one.
	_, errHidden := f.svc.Complete(ctx, task.ID, f.ava)
	_, errMissing := f.svc.Complete(ctx, task.ID+999, f.ava)
	if !errors.Is(errHidden, ErrTaskNotFound) || !errors.Is(errMissing, ErrTaskNotFound) {
		t.Fatalf("hidden = %v, missing = %v, want both ErrTaskNotFound", errHidden, errMissing)
	}

	if err := f.svc.SetVisibility(ctx, f.actor, task.ID, f.ava, false); err != nil {
		t.Fatalf("include: %v", err)
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); err != nil {
		t.Fatalf("complete after re-including: %v", err)
	}
}

func TestDisabledTask(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(singleTask(f.ava, ""))
	if err := f.svc.tasks.SetDisabled(task.ID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := f.svc.Complete(ctx, task.ID, f.ava); !errors.Is(err, ErrTaskDisabled) {
		t.Fatalf("expected ErrTaskDisabled, got %v", err)
	}
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("disabled task still listed")
	}
}

func TestPoolClaimLifecycle(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	task := f.createTask(CreateTaskInput{
		Title:            "Take out trash",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 200,
		AssignmentMode:   model.ModePool,
		RecurrenceRule:   "FREQ=DAILY",
	})

	// Unclaimed: open for everyone, no assignment row yet.
	for _, pid := range []int64{f.ava, f.ben} {
		list, err := f.svc.ListAvailable(ctx, pid)
		if err != nil {
			t.Fatalf("list available: %v", err)
		}
		if len(list) != 1 || list[0].Assignment != nil {
			t.Fatalf("performer %d: expected open pool task with nil assignment, got %+v", pid, list)
		}
	}

	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Ava's claim hides the task from Ava only. Ben's pair is untouched:
	// he still sees the open task and may claim it at the same time.
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("claimed pool task still listed for the claimer")
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted for claimer, got %v", err)
	}
	list, err = f.svc.ListAvailable(ctx, f.ben)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 || list[0].Assignment != nil {
		t.Fatalf("expected the pool task open for Ben, got %+v", list)
	}
	b, err := f.svc.Complete(ctx, task.ID, f.ben)
	if err != nil {
		t.Fatalf("Ben's simultaneous claim: %v", err)
	}

	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Next day Ava's approved claim row evaporates and she may claim
	// again; Ben's claim is still pending so his view is unchanged.
	f.setNow(time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))
	list, err = f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 || list[0].Assignment != nil {
		t.Fatalf("expected pool task reopened for Ava, got %+v", list)
	}
	list, err = f.svc.ListAvailable(ctx, f.ben)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("pending claim should keep the task off Ben's list")
	}
	if _, err := f.svc.Approve(ctx, f.actor, b.ID, nil); err != nil {
		t.Fatalf("approve Ben: %v", err)
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); err != nil {
		t.Fatalf("Ava's claim after reopen: %v", err)
	}
}

func TestPoolOneShotSpentPerPerformer(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(CreateTaskInput{
		Title:            "Wash the car",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 1000,
		AssignmentMode:   model.ModePool,
	})

	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Ava's pair is spent for good, but Ben's never ran: the task stays
	// open for him and his claim succeeds.
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("spent one-shot pool task still listed for Ava")
	}
	list, err = f.svc.ListAvailable(ctx, f.ben)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 || list[0].Assignment != nil {
		t.Fatalf("expected the one-shot pool task open for Ben, got %+v", list)
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ben); err != nil {
		t.Fatalf("Ben's claim: %v", err)
	}
}

func TestCompleteRejectsForeignPerformer(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	pool := f.createTask(CreateTaskInput{
		Title:            "Rake leaves",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 300,
		AssignmentMode:   model.ModePool,
	})
	single := f.createTask(singleTask(f.ava, ""))

	other, err := store.NewHouseholdStore(f.svc.db).Create("Nexthold")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	outsider, err := store.NewFamilyMemberStore(f.svc.db).Create(other.ID, "Cleo", model.RoleChild, "#22cc22", "🐢")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	// A performer from another household gets the same answer as for a
	// task that does not exist, even on a pool task with no performer
	// list to miss them.
	if _, err := f.svc.Complete(ctx, pool.ID, outsider.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("foreign claim on pool task: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.Complete(ctx, single.ID, outsider.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("foreign claim on single task: expected ErrTaskNotFound, got %v", err)
	}
	rows, err := f.svc.assignments.ListByTask(pool.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("foreign claim left %d assignment rows", len(rows))
	}
}

func TestExpiredPoolClaimStartsClean(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	task := f.createTask(CreateTaskInput{
		Title:            "Take out trash",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 200,
		AssignmentMode:   model.ModePool,
		RecurrenceRule:   "FREQ=DAILY",
	})

	// Claim, reject, redo, approve. The approved row still carries the
	// rejection reason from the middle of the cycle.
	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.actor, a.ID, "bin still by the door"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Complete(ctx, task.ID, f.ava); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Once the cooldown lapses the pair reads as never claimed. The next
	// claim must be a fresh row, not the old one with its stale reason.
	f.setNow(time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))
	fresh, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("claim after cooldown: %v", err)
	}
	if fresh.ID == a.ID {
		t.Fatal("expired claim row was reused instead of replaced")
	}
	if fresh.RejectionReason != nil {
		t.Fatalf("fresh claim carries stale rejection reason %q", *fresh.RejectionReason)
	}
	old, err := f.svc.assignments.GetByID(a.ID)
	if err != nil {
		t.Fatalf("get old row: %v", err)
	}
	if old != nil {
		t.Fatal("expired claim row still present")
	}
}

func TestPoolConcurrentClaims(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(CreateTaskInput{
		Title:            "Feed the cat",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 100,
		AssignmentMode:   model.ModePool,
	})

	// Two different performers racing: both claims must land.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []int64{f.ava, f.ben} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(ctx, task.ID, pid)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}

	rows, err := f.svc.assignments.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one claim row per performer, got %d", len(rows))
	}
}

func TestPoolSamePerformerRace(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	task := f.createTask(CreateTaskInput{
		Title:            "Water plants",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 100,
		AssignmentMode:   model.ModePool,
	})

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(ctx, task.ID, f.ava)
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyCompleted):
		default:
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}

	rows, err := f.svc.assignments.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single claim row, got %d", len(rows))
	}
}

func TestListPendingApproval(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.setNow(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	early := f.createTask(singleTask(f.ava, ""))
	if _, err := f.svc.Complete(ctx, early.ID, f.ava); err != nil {
		t.Fatalf("complete: %v", err)
	}

	f.setNow(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	late := f.createTask(CreateTaskInput{
		Title:            "Vacuum",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 400,
		AssignmentMode:   model.ModeSingle,
		PerformerIDs:     []int64{f.ben},
	})
	if _, err := f.svc.Complete(ctx, late.ID, f.ben); err != nil {
		t.Fatalf("complete: %v", err)
	}

	pending, err := f.svc.ListPendingApproval(ctx, f.actor)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending completions, got %d", len(pending))
	}
	if pending[0].Task.ID != early.ID || pending[1].Task.ID != late.ID {
		t.Fatalf("pending not ordered oldest first: %d then %d", pending[0].Task.ID, pending[1].Task.ID)
	}
	if pending[0].PerformerName != "Ava" || pending[1].PerformerName != "Ben" {
		t.Fatalf("performer names = %q, %q", pending[0].PerformerName, pending[1].PerformerName)
	}
}

// Exercises a week in the life of a single weekly chore end to end.
func TestWeeklyScenario(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) // Monday evening
	f.setNow(start)

	task := f.createTask(CreateTaskInput{
		Title:            "Clean bathroom",
		RewardMode:       model.RewardFixed,
		FixedRewardCents: 500,
		AssignmentMode:   model.ModeSingle,
		RecurrenceRule:   "FREQ=WEEKLY;BYDAY=MO",
		PerformerIDs:     []int64{f.ava},
	})

	a, err := f.svc.Complete(ctx, task.ID, f.ava)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Approve(ctx, f.actor, a.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Saturday: still cooling, reopen pinned to next Monday.
	f.setNow(start.AddDate(0, 0, 5))
	_, err = f.svc.Complete(ctx, task.ID, f.ava)
	var cool *InCooldownError
	if !errors.As(err, &cool) {
		t.Fatalf("expected InCooldownError, got %v", err)
	}
	wantReopen := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if cool.Until == nil || !cool.Until.Equal(wantReopen) {
		t.Fatalf("reopen = %v, want %v", cool.Until, wantReopen)
	}

	// Next Monday it is back, and the balance reflects exactly one credit.
	f.setNow(wantReopen.Add(7 * time.Hour))
	list, err := f.svc.ListAvailable(ctx, f.ava)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the weekly task back, got %d entries", len(list))
	}

	bal, err := f.svc.ledger.Balance(f.ava)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.BalanceCents != 500 {
		t.Fatalf("balance = %d cents, want 500", bal.BalanceCents)
	}
}
