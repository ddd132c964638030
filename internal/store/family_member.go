package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

// FamilyMemberStore persists the household roster. PIN hashes never
// leave this layer as part of a member row; HasPIN is derived from the
// column's presence.
type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, household_id, name, role, color, avatar_emoji, pin_hash IS NOT NULL, sort_order, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(
		&m.ID, &m.HouseholdID, &m.Name, &m.Role, &m.Color, &m.AvatarEmoji,
		&m.HasPIN, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create appends the member to the end of the household's sort order.
func (s *FamilyMemberStore) Create(householdID int64, name, role, color, avatarEmoji string) (*model.FamilyMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_members (household_id, name, role, color, avatar_emoji, sort_order)
		 SELECT ?, ?, ?, ?, ?, COALESCE(MAX(sort_order) + 1, 0)
		 FROM family_members WHERE household_id = ?`,
		householdID, name, role, color, avatarEmoji, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) ListByHousehold(householdID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members WHERE household_id = ? ORDER BY sort_order`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) Update(id int64, name, role, color, avatarEmoji string) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		`UPDATE family_members SET name = ?, role = ?, color = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, role, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the member; assignments, exclusions, and ledger entries
// cascade.
func (s *FamilyMemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM family_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}

// UpdateSortOrder persists a full reorder. Position in ids becomes the
// member's sort_order; all rows move in one transaction.
func (s *FamilyMemberStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for position, id := range ids {
		_, err := tx.Exec(`UPDATE family_members SET sort_order = ? WHERE id = ?`, position, id)
		if err != nil {
			return fmt.Errorf("reorder member %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *FamilyMemberStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE family_members SET pin_hash = ? WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE family_members SET pin_hash = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored hash, or "" when no PIN is set.
func (s *FamilyMemberStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM family_members WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("family member %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("load pin hash: %w", err)
	}
	return pin.String, nil
}
