package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/media"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
	"github.com/sakif/soundshelf/internal/storage"
)

// PlaylistService creates playlists and manages their membership.
type PlaylistService struct {
	playlists repository.PlaylistRepository
	songs     repository.SongRepository
	files     storage.FileStore
	logger    *slog.Logger
}

func NewPlaylistService(
	playlists repository.PlaylistRepository,
	songs repository.SongRepository,
	files storage.FileStore,
	logger *slog.Logger,
) *PlaylistService {
	return &PlaylistService{playlists: playlists, songs: songs, files: files, logger: logger}
}

// CreatePlaylist creates an empty playlist owned by ownerID.
//
// picture is optional (nil means the stock picture). When given it must
// decode as an image; it is read twice, once for the header and once to
// store it, hence io.ReadSeeker.
func (s *PlaylistService) CreatePlaylist(ctx context.Context, ownerID, name string, picture io.ReadSeeker) (*model.Playlist, error) {
	name, err := requireName("name", "playlist name", name)
	if err != nil {
		return nil, err
	}

	playlist := &model.Playlist{Name: name, OwnerID: ownerID}

	if picture != nil {
		info, err := media.InspectImage(picture)
		if err != nil {
			return nil, apperror.InvalidFileType("picture", "an image")
		}
		if _, err := picture.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("service/playlist: rewinding picture: %w", err)
		}
		path, err := s.files.Save(ctx, storage.BucketPlaylists, info.Extension(), picture)
		if err != nil {
			return nil, fmt.Errorf("service/playlist: storing picture: %w", err)
		}
		playlist.PicturePath = path
	}

	if err := s.playlists.CreatePlaylist(ctx, playlist); err != nil {
		if playlist.HasCustomPicture() {
			removeStored(ctx, s.files, s.logger, playlist.PicturePath)
		}
		return nil, fmt.Errorf("service/playlist: creating playlist: %w", err)
	}

	s.logger.Info("playlist created",
		slog.String("playlistID", playlist.ID),
		slog.String("ownerID", ownerID),
	)
	return playlist, nil
}

// AddSong puts songID into playlistID on behalf of userID.
//
// Errors: NotFound for an unknown playlist or song, Forbidden when userID
// does not own the playlist, AlreadyMember when the song is already there.
// AlreadyMember leaves the playlist unchanged and callers treat it as a
// notice, not a failure.
func (s *PlaylistService) AddSong(ctx context.Context, userID, playlistID, songID string) error {
	playlist, err := s.playlists.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return fmt.Errorf("service/playlist: loading playlist %s: %w", playlistID, err)
	}
	if _, err := s.songs.GetSongByID(ctx, songID); err != nil {
		if isNotFound(err) {
			return err
		}
		return fmt.Errorf("service/playlist: loading song %s: %w", songID, err)
	}
	if playlist.OwnerID != userID {
		return apperror.Forbidden("you can only add songs to your own playlists")
	}

	added, err := s.playlists.AddSongToPlaylist(ctx, playlistID, songID)
	if err != nil {
		return fmt.Errorf("service/playlist: adding song: %w", err)
	}
	if !added {
		return apperror.AlreadyMember()
	}

	s.logger.Info("song added to playlist",
		slog.String("playlistID", playlistID),
		slog.String("songID", songID),
	)
	return nil
}

// ListPlaylists returns the playlists ownerID owns, newest first.
func (s *PlaylistService) ListPlaylists(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	playlists, err := s.playlists.ListPlaylistsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: listing playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist returns a playlist with its songs.
func (s *PlaylistService) GetPlaylist(ctx context.Context, id string) (*model.PlaylistDetail, error) {
	playlist, err := s.playlists.GetPlaylistByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/playlist: loading playlist %s: %w", id, err)
	}

	songs, err := s.playlists.ListPlaylistSongs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: listing songs of %s: %w", id, err)
	}

	return &model.PlaylistDetail{Playlist: *playlist, Songs: songs}, nil
}
