package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

// PGStore is the Postgres-backed profile store for self-hosted
// deployments. Schedule and area data live in jsonb columns.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetUser(ctx context.Context, userID string) (models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, service_area,
		       search_schedule, minimum_price, areas, arrival_time, time_zone
		FROM users WHERE user_id = $1`, userID)

	var (
		profile      models.UserProfile
		scheduleJSON []byte
		areasJSON    []byte
	)
	err := row.Scan(
		&profile.UserID,
		&profile.AccessToken,
		&profile.RefreshToken,
		&profile.ServiceAreaHeader,
		&scheduleJSON,
		&profile.MinimumPrice,
		&areasJSON,
		&profile.ArrivalLeadTime,
		&profile.TimeZone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("pg get user %s: %w", userID, err)
	}
	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &profile.SearchSchedule); err != nil {
			return models.UserProfile{}, fmt.Errorf("pg decode schedule for %s: %w", userID, err)
		}
	}
	if len(areasJSON) > 0 {
		if err := json.Unmarshal(areasJSON, &profile.Areas); err != nil {
			return models.UserProfile{}, fmt.Errorf("pg decode areas for %s: %w", userID, err)
		}
	}
	return profile, nil
}

func (s *PGStore) SetUserCredentials(ctx context.Context, userID, accessToken, serviceArea string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET access_token = $2, service_area = $3 WHERE user_id = $1`,
		userID, accessToken, serviceArea)
	if err != nil {
		return fmt.Errorf("pg set credentials for %s: %w", userID, err)
	}
	return requireRow(res)
}

func (s *PGStore) TouchUser(ctx context.Context, userID string, timestamp int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_iteration = $2 WHERE user_id = $1`,
		userID, timestamp)
	if err != nil {
		return fmt.Errorf("pg touch user %s: %w", userID, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
