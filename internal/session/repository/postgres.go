package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"otp-session-auth/internal/session/domain"
)

const (
	upsertSessionSQL = `INSERT INTO active_sessions (slot, session_id, email, login_timestamp, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (slot) DO UPDATE SET
	session_id = EXCLUDED.session_id,
	email = EXCLUDED.email,
	login_timestamp = EXCLUDED.login_timestamp,
	updated_at = now()`
	selectSessionSQL = `SELECT session_id, email, login_timestamp FROM active_sessions WHERE slot = $1`
	deleteSessionSQL = `DELETE FROM active_sessions WHERE slot = $1`
)

// PostgresRepository stores sessions in the active_sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, key string, s *domain.Session) error {
	if _, err := r.db.ExecContext(ctx, upsertSessionSQL, key, s.ID, s.Email, s.LoginTimestamp.UTC()); err != nil {
		return fmt.Errorf("session: postgres save: %w", err)
	}
	return nil
}

// Load returns the session for key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Load(ctx context.Context, key string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, selectSessionSQL, key).Scan(&s.ID, &s.Email, &s.LoginTimestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: postgres load: %w", err)
	}
	s.LoginTimestamp = s.LoginTimestamp.UTC()
	return &s, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteSessionSQL, key); err != nil {
		return fmt.Errorf("session: postgres clear: %w", err)
	}
	return nil
}
