package model

import "time"

// Ledger entry kinds.
const (
	LedgerCredit = "credit"
	LedgerDebit  = "debit"
)

// LedgerEntry is one append-only movement on a member's balance. Credits come
// from approved completions, debits from reward redemptions. CorrelationID is
// unique and makes crediting idempotent under retries.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	AmountCents   int64     `json:"amount_cents"`
	Kind          string    `json:"kind"`
	CorrelationID string    `json:"correlation_id"`
	AssignmentID  *int64    `json:"assignment_id,omitempty"`
	RewardID      *int64    `json:"reward_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Reward is a redeemable catalog item members spend their balance on.
type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CostCents   int64     `json:"cost_cents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberBalance summarizes a member's ledger position.
type MemberBalance struct {
	MemberID     int64  `json:"member_id"`
	MemberName   string `json:"member_name"`
	EarnedCents  int64  `json:"earned_cents"`
	SpentCents   int64  `json:"spent_cents"`
	BalanceCents int64  `json:"balance_cents"`
}
