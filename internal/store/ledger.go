package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

type LedgerStore struct {
	db DBTX
}

func NewLedgerStore(db DBTX) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx returns a LedgerStore bound to the given transaction.
func (s *LedgerStore) WithTx(tx *sql.Tx) *LedgerStore {
	return &LedgerStore{db: tx}
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var assignmentID, rewardID sql.NullInt64

	err := scanner.Scan(
		&e.ID, &e.MemberID, &e.AmountCents, &e.Kind, &e.CorrelationID,
		&assignmentID, &rewardID, &e.Note, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignmentID.Valid {
		e.AssignmentID = &assignmentID.Int64
	}
	if rewardID.Valid {
		e.RewardID = &rewardID.Int64
	}
	return &e, nil
}

const ledgerCols = `id, member_id, amount_cents, kind, correlation_id, assignment_id, reward_id, note, created_at`

// Credit appends a credit for an approved completion. The unique correlation
// id makes retried approvals a no-op at the storage layer too.
func (s *LedgerStore) Credit(memberID int64, amountCents int64, correlationID string, assignmentID int64, note string) (*model.LedgerEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO ledger_entries (member_id, amount_cents, kind, correlation_id, assignment_id, note) VALUES (?, ?, ?, ?, ?, ?)`,
		memberID, amountCents, model.LedgerCredit, correlationID, assignmentID, note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert credit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Debit appends a debit for a reward redemption.
func (s *LedgerStore) Debit(memberID int64, amountCents int64, correlationID string, rewardID int64, note string) (*model.LedgerEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO ledger_entries (member_id, amount_cents, kind, correlation_id, reward_id, note) VALUES (?, ?, ?, ?, ?, ?)`,
		memberID, amountCents, model.LedgerDebit, correlationID, rewardID, note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert debit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LedgerStore) GetByID(id int64) (*model.LedgerEntry, error) {
	row := s.db.QueryRow(`SELECT `+ledgerCols+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (s *LedgerStore) ListByMember(memberID int64, limit int) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM ledger_entries WHERE member_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CountForAssignment returns how many credits reference the assignment.
// Used by tests to prove approvals never double-credit.
func (s *LedgerStore) CountForAssignment(assignmentID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE assignment_id = ? AND kind = ?`,
		assignmentID, model.LedgerCredit,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count credits: %w", err)
	}
	return count, nil
}

// Balance computes a member's position: credits minus debits.
func (s *LedgerStore) Balance(memberID int64) (*model.MemberBalance, error) {
	var earned, spent int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN kind = 'debit' THEN amount_cents ELSE 0 END), 0)
		 FROM ledger_entries WHERE member_id = ?`,
		memberID,
	).Scan(&earned, &spent)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM family_members WHERE id = ?`, memberID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get member name: %w", err)
	}

	return &model.MemberBalance{
		MemberID:     memberID,
		MemberName:   name,
		EarnedCents:  earned,
		SpentCents:   spent,
		BalanceCents: earned - spent,
	}, nil
}

// HouseholdBalances returns balances for every member of the household,
// ordered by balance descending.
func (s *LedgerStore) HouseholdBalances(householdID int64) ([]model.MemberBalance, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.name,
		        COALESCE(SUM(CASE WHEN e.kind = 'credit' THEN e.amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN e.kind = 'debit' THEN e.amount_cents ELSE 0 END), 0)
		 FROM family_members m
		 LEFT JOIN ledger_entries e ON e.member_id = m.id
		 WHERE m.household_id = ?
		 GROUP BY m.id, m.name
		 ORDER BY COALESCE(SUM(CASE WHEN e.kind = 'credit' THEN e.amount_cents ELSE -e.amount_cents END), 0) DESC, m.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("household balances: %w", err)
	}
	defer rows.Close()

	var balances []model.MemberBalance
	for rows.Next() {
		var b model.MemberBalance
		if err := rows.Scan(&b.MemberID, &b.MemberName, &b.EarnedCents, &b.SpentCents); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.BalanceCents = b.EarnedCents - b.SpentCents
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
