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

const userColumns = `id, username, password_hash, picture_path, is_artist, github_id, created_at, updated_at`

// CreateUser inserts a new user, filling in ID and timestamps.
//
// Username uniqueness is enforced by the UNIQUE constraint, not by a SELECT
// beforehand: two concurrent signups for the same name cannot both succeed.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.PicturePath == "" {
		user.PicturePath = model.DefaultProfilePicture
	}

	// github_id is NULL for form signups; UNIQUE allows any number of NULLs.
	var githubID sql.NullInt64
	if user.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: user.GitHubID, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.PicturePath,
		user.IsArtist,
		githubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateUsername()
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername is used by login; the lookup is an exact match.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// UpdateUsername renames a user. A collision with another account's name is
// reported as apperror.ErrDuplicateUsername.
func (db *DB) UpdateUsername(ctx context.Context, id, username string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateUsername()
		}
		return fmt.Errorf("sqlite: renaming user %s: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("user", id))
}

func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("user", id))
}

func (db *DB) UpdatePicture(ctx context.Context, id, picturePath string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET picture_path = ?, updated_at = ? WHERE id = ?`,
		picturePath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating picture for user %s: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("user", id))
}

// DeleteUser removes a user and everything they own in one transaction.
//
// ORDER MATTERS:
// Membership rows go first (they reference both songs and playlists), then
// the songs and playlists, then sessions, then the user row. Any failure
// rolls the whole thing back, so an account is either fully there or fully
// gone.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of user %s: %w", id, err)
	}
	// Rollback after Commit is a no-op, so deferring it is always safe.
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM playlist_songs
		 WHERE song_id IN (SELECT id FROM songs WHERE artist_id = ?)`,
		`DELETE FROM playlist_songs
		 WHERE playlist_id IN (SELECT id FROM playlists WHERE owner_id = ?)`,
		`DELETE FROM songs WHERE artist_id = ?`,
		`DELETE FROM playlists WHERE owner_id = ?`,
		`DELETE FROM sessions WHERE user_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: deleting dependents of user %s: %w", id, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if err := checkAffected(result, apperror.NotFound("user", id)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of user %s: %w", id, err)
	}
	return nil
}

// scanUser reads one users row. Both *sql.Row and *sql.Rows satisfy the
// scanner interface, so the same helper serves single and multi-row reads.
func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.PicturePath,
		&u.IsArtist,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}
