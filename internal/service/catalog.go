package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/media"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
	"github.com/sakif/soundshelf/internal/storage"
)

// CatalogService lists and uploads songs.
type CatalogService struct {
	songs  repository.SongRepository
	users  repository.UserRepository
	files  storage.FileStore
	logger *slog.Logger
}

func NewCatalogService(
	songs repository.SongRepository,
	users repository.UserRepository,
	files storage.FileStore,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{songs: songs, users: users, files: files, logger: logger}
}

// ListSongs returns every song, newest first. A non-empty genre keeps only
// songs whose genre matches exactly.
func (s *CatalogService) ListSongs(ctx context.Context, genre string) ([]model.Song, error) {
	songs, err := s.songs.ListSongs(ctx, repository.SongFilter{Genre: strings.TrimSpace(genre)})
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing songs: %w", err)
	}
	return songs, nil
}

// ListGenres returns the distinct genres in the catalog, sorted.
func (s *CatalogService) ListGenres(ctx context.Context) ([]string, error) {
	genres, err := s.songs.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing genres: %w", err)
	}
	return genres, nil
}

// UploadSong stores an mp3 and adds it to the catalog under artistID.
//
// Checks, in order: the uploader is an artist (Forbidden), title and genre
// are present (Validation), filename ends in .mp3 (InvalidFileType). The
// client filename is only inspected; the stored file gets a generated key.
func (s *CatalogService) UploadSong(ctx context.Context, artistID, title, genre, filename string, audio io.Reader) (*model.Song, error) {
	artist, err := s.users.GetUserByID(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading uploader: %w", err)
	}
	if !artist.IsArtist {
		return nil, apperror.Forbidden("only artists can upload songs")
	}

	if title, err = requireName("songname", "song name", title); err != nil {
		return nil, err
	}
	if genre, err = requireName("genre", "genre", genre); err != nil {
		return nil, err
	}
	if audio == nil || !media.IsMP3(filename) {
		return nil, apperror.InvalidFileType("audiofile", media.AudioExtension)
	}

	path, err := s.files.Save(ctx, storage.BucketSongs, media.AudioExtension, audio)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: storing audio: %w", err)
	}

	song := &model.Song{
		Title:      title,
		AudioPath:  path,
		Genre:      genre,
		ArtistID:   artist.ID,
		ArtistName: artist.Username,
	}
	if err := s.songs.CreateSong(ctx, song); err != nil {
		// The row is the only reference to the file; without it the file is garbage.
		removeStored(ctx, s.files, s.logger, path)
		return nil, fmt.Errorf("service/catalog: recording song: %w", err)
	}

	s.logger.Info("song uploaded",
		slog.String("songID", song.ID),
		slog.String("artistID", artist.ID),
		slog.String("genre", song.Genre),
	)
	return song, nil
}
