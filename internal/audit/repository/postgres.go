package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"otp-session-auth/internal/audit/domain"
)

const (
	insertAuditLogSQL = `INSERT INTO audit_logs (id, event, email, details, created_at) VALUES ($1, $2, $3, $4, $5)`
	listAuditLogsSQL  = `SELECT id, event, email, details, created_at FROM audit_logs
WHERE ($1::text = '' OR email = $1::text) AND ($2::text = '' OR event = $2::text)
ORDER BY created_at, id
LIMIT $3 OFFSET $4`
	clearAuditLogsSQL = `DELETE FROM audit_logs`
)

// PostgresRepository stores audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns audit logs matching f, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, listAuditLogsSQL, f.Email, f.Event, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.AuditLog{}
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("audit: encode details: %w", err)
	}
	if a.Details == nil {
		details = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, insertAuditLogSQL, a.ID, a.Event, a.Email, details, a.CreatedAt)
	return err
}

func (r *PostgresRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, clearAuditLogsSQL)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(row rowScanner) (*domain.AuditLog, error) {
	var (
		a       domain.AuditLog
		details []byte
	)
	if err := row.Scan(&a.ID, &a.Event, &a.Email, &details, &a.CreatedAt); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("audit: decode details: %w", err)
		}
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
