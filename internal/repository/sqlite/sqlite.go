// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code and works everywhere Go works.
//
// ONE CONNECTION:
// database/sql keeps a pool of connections, but PRAGMA settings are per
// connection and every ":memory:" connection is a separate, empty database.
// New limits the pool to a single connection so that foreign keys stay on
// and tests see one consistent in-memory database. SQLite serialises writers
// anyway, so a web app of this size loses nothing.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/soundshelf/internal/repository"
)

// compile-time check that *DB implements every repository interface
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/soundshelf.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping forces the first real connection, so a bad path or permissions
	// problem surfaces here instead of on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
//
// ON DELETE CASCADE mirrors the account deletion policy: removing a user
// removes what they own. DeleteUser also deletes dependents explicitly, so
// the policy holds even on a connection where foreign keys were not enabled.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			picture_path  TEXT NOT NULL DEFAULT '',
			is_artist     INTEGER NOT NULL DEFAULT 0,
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS songs (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			audio_path TEXT NOT NULL,
			genre      TEXT NOT NULL,
			artist_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs(genre);
		CREATE INDEX IF NOT EXISTS idx_songs_artist_id ON songs(artist_id);
	`)
	if err != nil {
		return fmt.Errorf("creating songs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS playlists (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			picture_path TEXT NOT NULL DEFAULT '',
			owner_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_playlists_owner_id ON playlists(owner_id);

		CREATE TABLE IF NOT EXISTS playlist_songs (
			playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			song_id     TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
			added_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (playlist_id, song_id)
		);
		CREATE INDEX IF NOT EXISTS idx_playlist_songs_song_id ON playlist_songs(song_id);
	`)
	if err != nil {
		return fmt.Errorf("creating playlist tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a write because
// of a UNIQUE constraint.
//
// modernc reports extended result codes (2067 for UNIQUE). The message check
// covers builds where only the primary code (19, SQLITE_CONSTRAINT) is set.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

// checkAffected turns "zero rows changed" into a NotFound error.
func checkAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
