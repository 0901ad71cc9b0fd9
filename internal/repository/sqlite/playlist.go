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

// playlistSelect counts members with a correlated subquery so every read
// carries SongCount without a GROUP BY.
const playlistSelect = `
	SELECT p.id, p.name, p.picture_path, p.owner_id, p.created_at,
	       (SELECT COUNT(*) FROM playlist_songs ps WHERE ps.playlist_id = p.id)
	FROM playlists p`

func (db *DB) CreatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	playlist.ID = xid.New().String()
	playlist.CreatedAt = time.Now().UTC()
	if playlist.PicturePath == "" {
		playlist.PicturePath = model.DefaultPlaylistPicture
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO playlists (id, name, picture_path, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		playlist.ID,
		playlist.Name,
		playlist.PicturePath,
		playlist.OwnerID,
		playlist.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating playlist %q: %w", playlist.Name, err)
	}
	return nil
}

func (db *DB) GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	row := db.conn.QueryRowContext(ctx, playlistSelect+` WHERE p.id = ?`, id)
	p, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("playlist", id)
		}
		return nil, fmt.Errorf("sqlite: getting playlist %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	rows, err := db.conn.QueryContext(ctx,
		playlistSelect+` WHERE p.owner_id = ? ORDER BY p.created_at DESC, p.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing playlists of %s: %w", ownerID, err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning playlist row: %w", err)
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating playlists: %w", err)
	}
	return playlists, nil
}

// AddSongToPlaylist inserts the membership pair.
//
// IDEMPOTENT MEMBERSHIP:
// (playlist_id, song_id) is the primary key, and INSERT OR IGNORE skips the
// row instead of failing when the pair already exists. RowsAffected tells
// us which case happened, so the caller can report "already in playlist"
// without a second query.
func (db *DB) AddSongToPlaylist(ctx context.Context, playlistID, songID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, added_at)
		 VALUES (?, ?, ?)`,
		playlistID, songID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("sqlite: adding song %s to playlist %s: %w", songID, playlistID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

// ListPlaylistSongs returns member songs in the order they were added.
func (db *DB) ListPlaylistSongs(ctx context.Context, playlistID string) ([]model.Song, error) {
	rows, err := db.conn.QueryContext(ctx,
		songSelect+`
		JOIN playlist_songs ps ON ps.song_id = s.id
		WHERE ps.playlist_id = ?
		ORDER BY ps.added_at, s.id`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing songs of playlist %s: %w", playlistID, err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

func scanPlaylist(row interface{ Scan(dest ...any) error }) (*model.Playlist, error) {
	var p model.Playlist
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.PicturePath,
		&p.OwnerID,
		&p.CreatedAt,
		&p.SongCount,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
