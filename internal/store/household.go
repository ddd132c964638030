package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

// HouseholdStore manages households and the login-account memberships
// attached to them. Membership rows carry the account role (admin or
// member); the parent/child distinction lives on family members, not
// here.
type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	var h model.Household
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM households WHERE id = ?`,
		id,
	).Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return &h, nil
}

// AddMember attaches a user account to a household. The pairing is
// unique, so inviting the same account twice fails at the database.
func (s *HouseholdStore) AddMember(householdID, userID int64, role string) (*model.HouseholdMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		householdID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	var m model.HouseholdMember
	err = s.db.QueryRow(
		`SELECT id, household_id, user_id, role, created_at, updated_at
		 FROM household_members WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload household member: %w", err)
	}
	return &m, nil
}

// GetMember returns the membership row for a user in a household, or
// nil when the user does not belong to it.
func (s *HouseholdStore) GetMember(householdID, userID int64) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := s.db.QueryRow(
		`SELECT id, household_id, user_id, role, created_at, updated_at
		 FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	).Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household member: %w", err)
	}
	return &m, nil
}

// ListForUser returns every household the user belongs to, oldest
// membership first. Login lands the user in the first one.
func (s *HouseholdStore) ListForUser(userID int64) ([]model.Household, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.name, h.created_at, h.updated_at
		 FROM households h
		 JOIN household_members hm ON hm.household_id = h.id
		 WHERE hm.user_id = ?
		 ORDER BY hm.created_at, h.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		var h model.Household
		if err := rows.Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

// Delete removes a household. Child rows cascade through the schema's
// foreign keys.
func (s *HouseholdStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}
