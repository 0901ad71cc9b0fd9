package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/model"
)

// CreateSession stores a login. ID is generated here unless the caller set
// one; ExpiresAt must be set by the caller.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = xid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %s: %w", session.UserID, err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}
	return &s, nil
}

// DeleteSession is idempotent: deleting an unknown session is not an error,
// because logout must succeed unconditionally.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
