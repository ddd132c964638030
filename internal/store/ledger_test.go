package store

import (
	"testing"

	"github.com/rowanvale/choreboard/internal/model"
)

func TestLedgerCreditDebitBalance(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	member := seedMember(t, db, house, "Ava")
	task := seedTask(t, db, house, "Dishes", model.ModeSingle)
	as := NewAssignmentStore(db)
	ls := NewLedgerStore(db)

	a, err := as.Create(task.ID, member)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	entry, err := ls.Credit(member, 500, "corr-1", a.ID, "Dishes")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if entry.Kind != model.LedgerCredit || entry.AmountCents != 500 {
		t.Fatalf("credit entry mismatch: %+v", entry)
	}
	if entry.AssignmentID == nil || *entry.AssignmentID != a.ID {
		t.Fatalf("assignment link = %v, want %d", entry.AssignmentID, a.ID)
	}

	reward, err := NewRewardStore(db).Create(house, "Movie night", "", 300, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := ls.Debit(member, 300, "corr-2", reward.ID, "Movie night"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	bal, err := ls.Balance(member)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.EarnedCents != 500 || bal.SpentCents != 300 || bal.BalanceCents != 200 {
		t.Fatalf("balance = %+v, want 500/300/200", bal)
	}
}

func TestLedgerCorrelationIDIsUnique(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	member := seedMember(t, db, house, "Ava")
	task := seedTask(t, db, house, "Dishes", model.ModeSingle)
	as := NewAssignmentStore(db)
	ls := NewLedgerStore(db)

	a, err := as.Create(task.ID, member)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if _, err := ls.Credit(member, 500, "same-corr", a.ID, "Dishes"); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	_, err = ls.Credit(member, 500, "same-corr", a.ID, "Dishes")
	if err == nil {
		t.Fatal("duplicate correlation id should fail")
	}
	if !IsConflict(err) {
		t.Fatalf("IsConflict(%v) = false, want true", err)
	}

	n, err := ls.CountForAssignment(a.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 credit, got %d", n)
	}
}

func TestHouseholdBalances(t *testing.T) {
	db := setupTestDB(t)
	house := seedHousehold(t, db)
	ava := seedMember(t, db, house, "Ava")
	ben := seedMember(t, db, house, "Ben")
	cal := seedMember(t, db, house, "Cal")
	task := seedTask(t, db, house, "Dishes", model.ModeMulti)
	as := NewAssignmentStore(db)
	ls := NewLedgerStore(db)

	aAva, _ := as.Create(task.ID, ava)
	aBen, _ := as.Create(task.ID, ben)
	if _, err := ls.Credit(ava, 200, "c-ava", aAva.ID, "Dishes"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := ls.Credit(ben, 900, "c-ben", aBen.ID, "Dishes"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balances, err := ls.HouseholdBalances(house)
	if err != nil {
		t.Fatalf("household balances: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("expected 3 members, got %d", len(balances))
	}
	// Richest first; Cal has no entries but still appears with zero.
	if balances[0].MemberID != ben || balances[0].BalanceCents != 900 {
		t.Fatalf("first = %+v, want Ben at 900", balances[0])
	}
	if balances[1].MemberID != ava || balances[1].BalanceCents != 200 {
		t.Fatalf("second = %+v, want Ava at 200", balances[1])
	}
	if balances[2].MemberID != cal || balances[2].BalanceCents != 0 {
		t.Fatalf("third = %+v, want Cal at 0", balances[2])
	}
}
