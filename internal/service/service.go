// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, sets cookies, redirects
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take plain values (strings, io.Reader) and return domain errors
// from internal/apperror. They know nothing about HTTP: the same rules apply
// whether the caller is a handler, a CLI command or a test.
//
// DEPENDENCY INJECTION:
// Every service receives repository interfaces and a storage.FileStore, never
// a *sqlite.DB. Tests pass the in-memory fakes from fakes_test.go.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/storage"
)

// Validation limits, shared by every service.
const (
	MaxNameLength     = 64 // usernames, song titles, genres, playlist names
	MaxPasswordLength = auth.MaxPasswordBytes
)

// requireName trims s and checks it is present and short enough.
func requireName(field, label, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, label+" is required")
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", label, MaxNameLength))
	}
	return s, nil
}

func requirePassword(field, password string) error {
	if password == "" {
		return apperror.ValidationFailed(field, "password is required")
	}
	if len(password) > MaxPasswordLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordLength))
	}
	return nil
}

// checkPassword verifies plaintext against the user's stored hash.
//
// Accounts created through GitHub have no hash; for them only the empty
// password passes, so they can set a first password from the settings page.
func checkPassword(passwords *auth.PasswordService, user *model.User, plaintext string) error {
	if !user.HasPassword() {
		if plaintext == "" {
			return nil
		}
		return apperror.InvalidCredentials()
	}
	if err := passwords.Verify(user.PasswordHash, plaintext); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.InvalidCredentials()
		}
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, apperror.ErrDuplicateUsername)
}

// removeStored deletes a file nothing references any more. A failure only
// leaves the file behind, so it is logged rather than returned.
func removeStored(ctx context.Context, files storage.FileStore, logger *slog.Logger, path string) {
	if err := files.Remove(ctx, path); err != nil {
		logger.Warn("removing stored file failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
