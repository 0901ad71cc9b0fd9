// Package apperror defines the typed errors shared by every layer.
//
// Each constructor returns an *AppError whose Err field is one of the
// sentinel values below. Callers test the kind with errors.Is and read the
// human-readable text with errors.As:
//
//	if errors.Is(err, apperror.ErrDuplicateUsername) { ... }
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) { flash(appErr.Message) }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Account errors.
	ErrDuplicateUsername  = errors.New("duplicate username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("password mismatch")

	// Upload errors.
	ErrInvalidFileType = errors.New("invalid file type")
	ErrImageTooLarge   = errors.New("image too large")

	// ErrAlreadyMember is non-fatal: the playlist already holds the song.
	ErrAlreadyMember = errors.New("already a member")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means there is no valid session behind the request.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// DuplicateUsername is returned by the store when the UNIQUE constraint on
// users.username rejects a write.
func DuplicateUsername() *AppError {
	return &AppError{
		Err:     ErrDuplicateUsername,
		Message: "Username Is Already Taken",
		Field:   "username",
	}
}

// InvalidCredentials deliberately does not say whether the username or the
// password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Incorrect Credentials",
		Field:   "password",
	}
}

func PasswordMismatch() *AppError {
	return &AppError{
		Err:     ErrPasswordMismatch,
		Message: "Passwords do not match",
		Field:   "confirm_password",
	}
}

func InvalidFileType(field, want string) *AppError {
	return &AppError{
		Err:     ErrInvalidFileType,
		Message: fmt.Sprintf("invalid file type, expected %s", want),
		Field:   field,
	}
}

func ImageTooLarge(maxDim int) *AppError {
	return &AppError{
		Err:     ErrImageTooLarge,
		Message: fmt.Sprintf("image must be at most %dx%d pixels", maxDim, maxDim),
		Field:   "picture",
	}
}

func AlreadyMember() *AppError {
	return &AppError{
		Err:     ErrAlreadyMember,
		Message: "Song is already in this playlist",
		Field:   "song",
	}
}
