package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
)

// songSelect joins every song with its artist so ArtistName is always
// filled. Queries append WHERE/ORDER BY clauses to it.
const songSelect = `
	SELECT s.id, s.title, s.audio_path, s.genre, s.artist_id, u.username, s.created_at
	FROM songs s
	JOIN users u ON u.id = s.artist_id`

// CreateSong records an uploaded track. The audio file must already be in
// the file store; AudioPath is whatever the store returned.
func (db *DB) CreateSong(ctx context.Context, song *model.Song) error {
	song.ID = xid.New().String()
	song.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO songs (id, title, audio_path, genre, artist_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		song.ID,
		song.Title,
		song.AudioPath,
		song.Genre,
		song.ArtistID,
		song.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating song %q: %w", song.Title, err)
	}
	return nil
}

func (db *DB) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	row := db.conn.QueryRowContext(ctx, songSelect+` WHERE s.id = ?`, id)
	s, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("song", id)
		}
		return nil, fmt.Errorf("sqlite: getting song %s: %w", id, err)
	}
	return s, nil
}

// ListSongs returns songs newest first, narrowed by the filter.
//
// BUILDING THE WHERE CLAUSE:
// Only the placeholders are assembled dynamically; every value still goes
// through a ? parameter, so there is no injection risk.
func (db *DB) ListSongs(ctx context.Context, filter repository.SongFilter) ([]model.Song, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Genre != "" {
		conds = append(conds, "s.genre = ?")
		args = append(args, filter.Genre)
	}
	if filter.ArtistID != "" {
		conds = append(conds, "s.artist_id = ?")
		args = append(args, filter.ArtistID)
	}

	query := songSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// ListGenres returns the distinct genre labels in use, sorted.
func (db *DB) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT genre FROM songs ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing genres: %w", err)
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("sqlite: scanning genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating genres: %w", err)
	}
	return genres, nil
}

func scanSong(row interface{ Scan(dest ...any) error }) (*model.Song, error) {
	var s model.Song
	if err := row.Scan(
		&s.ID,
		&s.Title,
		&s.AudioPath,
		&s.Genre,
		&s.ArtistID,
		&s.ArtistName,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// collectSongs drains rows into a slice. It never returns nil on success,
// so JSON responses show [] rather than null.
func collectSongs(rows *sql.Rows) ([]model.Song, error) {
	songs := []model.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning song row: %w", err)
		}
		songs = append(songs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating songs: %w", err)
	}
	return songs, nil
}
