package handler

// RESPONSE HELPERS:
// GET page endpoints answer with JSON (the data a template would render);
// POST endpoints redirect with a flash message (see flash.go). These helpers
// keep both consistent.
//
// CONSISTENT ERROR FORMAT:
// Every JSON error has the same shape:
//   {"error": "not_found", "message": "playlist not found with id abc123"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/soundshelf/internal/apperror"
)

// genericErrorMessage is shown for errors that are not *apperror.AppError.
// NEVER expose internal error details: they may contain SQL or file paths.
const genericErrorMessage = "Something went wrong, please try again"

// ErrorResponse is the standard error format returned by all page endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes, the headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to an HTTP status and a machine-readable kind.
//
// errors.Is walks the whole chain, so a service error such as
// fmt.Errorf("service/profile: %w", apperror.ImageTooLarge(512)) still maps.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrPasswordMismatch):
		return http.StatusBadRequest, "password_mismatch"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrDuplicateUsername):
		return http.StatusConflict, "duplicate_username"
	case errors.Is(err, apperror.ErrAlreadyMember):
		return http.StatusConflict, "already_member"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, apperror.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType, "invalid_file_type"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// messageFor returns the user-facing text for err.
func messageFor(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return genericErrorMessage
}

// writeError sends err as a JSON ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: messageFor(err)})
}

// fail logs unexpected errors, flashes the message and redirects to the form.
// Prior state is unchanged; the user simply sees the form again.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, to string, err error) {
	if status, _ := classify(err); status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	setFlash(w, FlashFail, messageFor(err))
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// succeed flashes a message and redirects.
func succeed(w http.ResponseWriter, r *http.Request, to, message string) {
	setFlash(w, FlashSuccess, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
