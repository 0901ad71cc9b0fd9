// Package handler holds the HTTP handlers.
//
// HANDLER RESPONSIBILITIES:
// A handler parses the request (form fields, files, URL params), calls one
// service method, and turns the result into either JSON page data (GET) or
// a flash message plus redirect (POST). Business rules live in the
// services; a handler never touches the repository directly.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/service"
)

// multipartMemory is how much of a multipart form is held in memory; larger
// file parts spill to temporary files.
const multipartMemory = 8 << 20

// Options are the HTTP-level settings shared by the handlers.
type Options struct {
	CookieSecure   bool
	MaxUploadBytes int64
}

// FormPage is the page data of the simple form pages (signup, login,
// upload, create playlist).
type FormPage struct {
	Page  string      `json:"page"`
	User  *model.User `json:"user,omitempty"`
	Flash *Flash      `json:"flash,omitempty"`
}

// requireUser loads the signed-in user. It returns false after writing a
// response: a redirect to /login when the account is gone (deleted while
// the session cookie was still around), a JSON error otherwise.
func requireUser(w http.ResponseWriter, r *http.Request, users *service.AuthService, logger *slog.Logger) (*model.User, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := users.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return nil, false
		}
		logger.Error("loading current user failed", slog.String("error", err.Error()))
		writeError(w, err)
		return nil, false
	}
	return user, true
}

// parseForm caps the request body at max bytes and parses it, either as a
// multipart form (uploads) or as a urlencoded one.
func parseForm(w http.ResponseWriter, r *http.Request, max int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, max)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("file", "upload is too large")
		}
		return apperror.ValidationFailed("file", "could not read the submitted form")
	}
	return nil
}
