package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/service"
)

// ProfileHandler serves the settings page and account deletion.
//
// Both routes carry the user id in the URL, but they only ever act on the
// signed-in user; any other id is Forbidden.
type ProfileHandler struct {
	auth    *service.AuthService
	profile *service.ProfileService
	opts    Options
	logger  *slog.Logger
}

func NewProfileHandler(authService *service.AuthService, profile *service.ProfileService, opts Options, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{auth: authService, profile: profile, opts: opts, logger: logger}
}

// SettingsPage is the data of the settings screen.
type SettingsPage struct {
	User  *model.User `json:"user"`
	Flash *Flash      `json:"flash,omitempty"`
}

func settingsURL(userID string) string {
	return "/settings/" + userID
}

// ownUser loads the signed-in user and checks the {userId} URL param.
func (h *ProfileHandler) ownUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return nil, false
	}
	if chi.URLParam(r, "userId") != user.ID {
		err := apperror.Forbidden("you can only change your own account")
		if r.Method == http.MethodGet {
			writeError(w, err)
		} else {
			fail(w, r, h.logger, settingsURL(user.ID), err)
		}
		return nil, false
	}
	return user, true
}

// HandleSettingsPage → GET /settings/{userId}
func (h *ProfileHandler) HandleSettingsPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SettingsPage{User: user, Flash: popFlash(w, r)})
}

// HandleSettings applies one change from the settings page.
//
// HTTP: POST /settings/{userId}
//
//	action=username  fields: username, current_password
//	action=password  fields: old_password, new_password
//	action=picture   multipart field: picture
func (h *ProfileHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	back := settingsURL(user.ID)

	if err := parseForm(w, r, h.opts.MaxUploadBytes); err != nil {
		fail(w, r, h.logger, back, err)
		return
	}

	var (
		err     error
		message string
	)
	switch r.FormValue("action") {
	case "username":
		_, err = h.profile.RenameUser(r.Context(), user.ID, r.FormValue("username"), r.FormValue("current_password"))
		message = "Username updated"
	case "password":
		err = h.profile.ChangePassword(r.Context(), user.ID, r.FormValue("old_password"), r.FormValue("new_password"))
		message = "Password updated"
	case "picture":
		var picture multipart.File
		if file, _, ferr := r.FormFile("picture"); ferr == nil {
			defer file.Close()
			picture = file
		}
		_, err = h.profile.UpdateProfilePicture(r.Context(), user.ID, picture)
		message = "Profile picture updated"
	default:
		err = apperror.ValidationFailed("action", "unknown settings action")
	}

	if err != nil {
		fail(w, r, h.logger, back, err)
		return
	}
	succeed(w, r, back, message)
}

// HandleDelete deletes the signed-in account.
//
// HTTP: POST /delete/{userId}   fields: password, confirm_password
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.ownUser(w, r)
	if !ok {
		return
	}

	err := h.profile.DeleteAccount(r.Context(), user.ID, r.PostFormValue("password"), r.PostFormValue("confirm_password"))
	if err != nil {
		fail(w, r, h.logger, settingsURL(user.ID), err)
		return
	}

	// The session rows went with the account; the cookie is now useless.
	auth.ClearSessionCookie(w, h.opts.CookieSecure)
	succeed(w, r, "/signup", "Your account has been deleted")
}
