package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/media"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
	"github.com/sakif/soundshelf/internal/storage"
)

// ProfileService manages account settings and account deletion.
//
// It takes the whole repository.Store because deleting an account has to
// find the files of the user's songs and playlists before the rows go.
type ProfileService struct {
	store     repository.Store
	passwords *auth.PasswordService
	files     storage.FileStore
	logger    *slog.Logger
}

func NewProfileService(
	store repository.Store,
	passwords *auth.PasswordService,
	files storage.FileStore,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{store: store, passwords: passwords, files: files, logger: logger}
}

func (s *ProfileService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: loading user %s: %w", userID, err)
	}
	return user, nil
}

// RenameUser changes the username after re-checking the current password.
func (s *ProfileService) RenameUser(ctx context.Context, userID, newName, currentPassword string) (*model.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(s.passwords, user, currentPassword); err != nil {
		return nil, err
	}
	newName, err = requireName("username", "username", newName)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateUsername(ctx, userID, newName); err != nil {
		if isDuplicate(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: renaming user %s: %w", userID, err)
	}

	s.logger.Info("user renamed",
		slog.String("userID", userID),
		slog.String("from", user.Username),
		slog.String("to", newName),
	)
	user.Username = newName
	return user, nil
}

// ChangePassword replaces the password hash after checking the old password.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkPassword(s.passwords, user, oldPassword); err != nil {
		return err
	}
	if err := requirePassword("new_password", newPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/profile: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/profile: storing password for %s: %w", userID, err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// UpdateProfilePicture stores a new picture of at most 512x512 pixels and
// removes the previous one unless it was the stock picture.
func (s *ProfileService) UpdateProfilePicture(ctx context.Context, userID string, picture io.ReadSeeker) (*model.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if picture == nil {
		return nil, apperror.InvalidFileType("picture", "an image")
	}

	info, err := media.InspectImage(picture)
	if err != nil {
		return nil, apperror.InvalidFileType("picture", "an image")
	}
	if !info.Fits(media.MaxImageDimension) {
		return nil, apperror.ImageTooLarge(media.MaxImageDimension)
	}
	if _, err := picture.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("service/profile: rewinding picture: %w", err)
	}

	path, err := s.files.Save(ctx, storage.BucketPictures, info.Extension(), picture)
	if err != nil {
		return nil, fmt.Errorf("service/profile: storing picture: %w", err)
	}
	if err := s.store.UpdatePicture(ctx, userID, path); err != nil {
		removeStored(ctx, s.files, s.logger, path)
		return nil, fmt.Errorf("service/profile: updating picture for %s: %w", userID, err)
	}

	if user.HasCustomPicture() {
		removeStored(ctx, s.files, s.logger, user.PicturePath)
	}

	s.logger.Info("profile picture updated",
		slog.String("userID", userID),
		slog.Int("width", info.Width),
		slog.Int("height", info.Height),
	)
	user.PicturePath = path
	return user, nil
}

// DeleteAccount removes the user and everything they own.
//
// password and confirmPassword must match each other (PasswordMismatch) and
// the stored password (InvalidCredentials). Rows go in one transaction;
// files are removed afterwards and a failure there is only logged, since
// nothing references them any more.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID, password, confirmPassword string) error {
	if password != confirmPassword {
		return apperror.PasswordMismatch()
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkPassword(s.passwords, user, password); err != nil {
		return err
	}

	files, err := s.ownedFiles(ctx, user)
	if err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/profile: deleting user %s: %w", userID, err)
	}

	for _, path := range files {
		removeStored(ctx, s.files, s.logger, path)
	}

	s.logger.Info("account deleted",
		slog.String("userID", userID),
		slog.Int("files", len(files)),
	)
	return nil
}

// ownedFiles lists the stored files that belong to user: the profile
// picture, the audio of their songs and their playlist pictures.
func (s *ProfileService) ownedFiles(ctx context.Context, user *model.User) ([]string, error) {
	var files []string
	if user.HasCustomPicture() {
		files = append(files, user.PicturePath)
	}

	songs, err := s.store.ListSongs(ctx, repository.SongFilter{ArtistID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing songs of %s: %w", user.ID, err)
	}
	for _, song := range songs {
		files = append(files, song.AudioPath)
	}

	playlists, err := s.store.ListPlaylistsByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing playlists of %s: %w", user.ID, err)
	}
	for _, p := range playlists {
		if p.HasCustomPicture() {
			files = append(files, p.PicturePath)
		}
	}
	return files, nil
}
