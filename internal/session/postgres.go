package session

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists sessions in the web_sessions table.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore creates a store and ensures its table exists.
func NewPostgresStore(ctx context.Context, db *sql.DB, ttl time.Duration) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres session store: nil db")
	}
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS web_sessions (
			id          TEXT PRIMARY KEY,
			data        JSONB NOT NULL,
			expires_at  TIMESTAMPTZ,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

// Get returns the session stored under id. Expired rows read as absent.
func (p *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT data FROM web_sessions
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return Decode(raw)
}

// Set upserts the session.
func (p *PostgresStore) Set(ctx context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id required")
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	var expiresAt any
	if p.ttl > 0 {
		expiresAt = time.Now().UTC().Add(p.ttl)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO web_sessions (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, s.ID, data, expiresAt)
	return err
}

// Clear deletes the session row.
func (p *PostgresStore) Clear(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = $1`, id)
	return err
}

// PurgeExpired removes rows past their expiry and returns how many were deleted.
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
