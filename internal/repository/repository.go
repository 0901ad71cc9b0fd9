// Package repository declares the storage interfaces the services depend on.
//
// Services receive these interfaces, never a concrete database type, so the
// SQLite implementation in repository/sqlite can be swapped for an in-memory
// fake in tests (see the *_test.go files in internal/service).
//
// ERROR CONTRACT:
//   - lookups of unknown ids return an error wrapping apperror.ErrNotFound
//   - writes that collide with the username UNIQUE constraint return an
//     error wrapping apperror.ErrDuplicateUsername
package repository

import (
	"context"
	"time"

	"github.com/sakif/soundshelf/internal/model"
)

// SongFilter narrows ListSongs. Zero values mean "no filter".
type SongFilter struct {
	Genre    string // exact match
	ArtistID string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePicture(ctx context.Context, id, picturePath string) error
	// DeleteUser removes the user together with their sessions, songs,
	// playlists and every membership row that references them.
	DeleteUser(ctx context.Context, id string) error
}

type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) error
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	ListSongs(ctx context.Context, filter SongFilter) ([]model.Song, error)
	ListGenres(ctx context.Context) ([]string, error)
}

type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) error
	GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error)
	// AddSongToPlaylist reports added=false when the pair already exists.
	AddSongToPlaylist(ctx context.Context, playlistID, songID string) (added bool, err error)
	ListPlaylistSongs(ctx context.Context, playlistID string) ([]model.Song, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is everything the application persists. *sqlite.DB implements it.
type Store interface {
	UserRepository
	SongRepository
	PlaylistRepository
	SessionRepository
}
