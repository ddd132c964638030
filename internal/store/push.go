package store

import (
	"database/sql"
	"fmt"

	"github.com/rowanvale/choreboard/internal/model"
)

// PushStore persists Web Push subscriptions. The endpoint URL is the
// natural key; a browser re-subscribing replaces its old keys in place.
type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, user_id, household_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.HouseholdID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription upserts on the endpoint so repeat registrations
// from the same browser refresh the keys instead of piling up rows.
func (s *PushStore) CreateSubscription(userID, householdID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	sub, err := scanSubscription(s.db.QueryRow(
		`INSERT INTO push_subscriptions (user_id, household_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE
		   SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name
		 RETURNING `+pushCols,
		userID, householdID, endpoint, p256dh, auth, deviceName,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID, householdID int64) ([]model.PushSubscription, error) {
	return s.list(
		`SELECT `+pushCols+` FROM push_subscriptions
		 WHERE user_id = ? AND household_id = ? ORDER BY created_at DESC`,
		userID, householdID,
	)
}

func (s *PushStore) ListByHousehold(householdID int64) ([]model.PushSubscription, error) {
	return s.list(
		`SELECT `+pushCols+` FROM push_subscriptions
		 WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
}

func (s *PushStore) list(query string, args ...any) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteSubscription(id, householdID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM push_subscriptions WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription the push service reported expired.
func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("drop expired subscription: %w", err)
	}
	return nil
}
