package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

// RewardStore persists the redeemable catalog. Costs are integer
// cents; balances never see floating point.
type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, household_id, title, description, cost_cents, active, created_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var (
		r      model.Reward
		active int
	)
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.CostCents, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Active = active != 0
	return &r, nil
}

func asInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *RewardStore) Create(householdID int64, title, description string, costCents int64, active bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, cost_cents, active) VALUES (?, ?, ?, ?, ?)`,
		householdID, title, description, costCents, asInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	r, err := scanReward(s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reward: %w", err)
	}
	return r, nil
}

// ListByHousehold returns the whole catalog, active entries first so
// retired rewards sink to the bottom of the admin view.
func (s *RewardStore) ListByHousehold(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? ORDER BY active DESC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, description string, costCents int64, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, cost_cents = ?, active = ? WHERE id = ?`,
		title, description, costCents, asInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}
