package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/rowanvale/choreboard/internal/model"
)

// codeTTL is how long an emailed login code stays redeemable.
const codeTTL = 15 * time.Minute

// MagicLinkStore persists the short-lived numeric codes used for
// passwordless login and invites. At most one code per email is live
// at a time.
type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

// newCode draws a uniform 6-digit code. Leading digit is never zero so
// the code survives being read aloud or retyped without padding.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func scanCode(scanner interface{ Scan(...any) error }) (*model.MagicLink, error) {
	var (
		ml          model.MagicLink
		householdID sql.NullInt64
		usedAt      sql.NullTime
	)
	err := scanner.Scan(
		&ml.ID, &ml.Token, &ml.Email, &ml.Purpose, &householdID,
		&ml.ExpiresAt, &usedAt, &ml.Attempts, &ml.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if householdID.Valid {
		ml.HouseholdID = &householdID.Int64
	}
	if usedAt.Valid {
		ml.UsedAt = &usedAt.Time
	}
	return &ml, nil
}

const codeCols = `id, token, email, purpose, household_id, expires_at, used_at, attempts, created_at`

// Create mints a fresh code for the email. Any outstanding codes for
// the same address are burned first, so a resend always invalidates
// the previous email.
func (s *MagicLinkStore) Create(email, purpose string, householdID *int64) (*model.MagicLink, error) {
	_, err := s.db.Exec(
		`UPDATE magic_links SET used_at = datetime('now')
		 WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("burn outstanding codes: %w", err)
	}

	code, err := newCode()
	if err != nil {
		return nil, err
	}

	var hID sql.NullInt64
	if householdID != nil {
		hID = sql.NullInt64{Int64: *householdID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO magic_links (token, email, purpose, household_id, expires_at) VALUES (?, ?, ?, ?, ?)`,
		code, email, purpose, hID, time.Now().UTC().Add(codeTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert login code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return scanCode(s.db.QueryRow(`SELECT `+codeCols+` FROM magic_links WHERE id = ?`, id))
}

// GetByEmailAndCode returns the matching live code, or nil when the
// code is wrong, spent, or expired.
func (s *MagicLinkStore) GetByEmailAndCode(email, code string) (*model.MagicLink, error) {
	ml, err := scanCode(s.db.QueryRow(
		`SELECT `+codeCols+` FROM magic_links
		 WHERE email = ? AND token = ? AND expires_at > datetime('now') AND used_at IS NULL`,
		email, code,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up login code: %w", err)
	}
	return ml, nil
}

// GetActiveByEmail returns the live code for an email, or nil. Wrong
// guesses are charged against this code so an attacker cannot probe
// without spending its attempt budget.
func (s *MagicLinkStore) GetActiveByEmail(email string) (*model.MagicLink, error) {
	ml, err := scanCode(s.db.QueryRow(
		`SELECT `+codeCols+` FROM magic_links
		 WHERE email = ? AND expires_at > datetime('now') AND used_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up active code: %w", err)
	}
	return ml, nil
}

// IncrementAttempts bumps the guess counter and returns the new total.
func (s *MagicLinkStore) IncrementAttempts(id int64) (int, error) {
	var attempts int
	err := s.db.QueryRow(
		`UPDATE magic_links SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("count attempt: %w", err)
	}
	return attempts, nil
}

func (s *MagicLinkStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE magic_links SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}

func (s *MagicLinkStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_links WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	return result.RowsAffected()
}
