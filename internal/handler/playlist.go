package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/service"
)

// PlaylistHandler serves playlist creation, viewing and membership.
type PlaylistHandler struct {
	auth      *service.AuthService
	playlists *service.PlaylistService
	opts      Options
	logger    *slog.Logger
}

func NewPlaylistHandler(authService *service.AuthService, playlists *service.PlaylistService, opts Options, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{auth: authService, playlists: playlists, opts: opts, logger: logger}
}

// playlistURL is the canonical address of a playlist page.
func playlistURL(id string) string {
	return "/Playlist/" + id
}

// HandleCreatePage → GET /createplaylist
func (h *PlaylistHandler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormPage{Page: "createplaylist", User: user, Flash: popFlash(w, r)})
}

// HandleCreate creates a playlist for the signed-in user.
//
// HTTP: POST /createplaylist   multipart fields: name, picture (optional)
func (h *PlaylistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}
	if err := parseForm(w, r, h.opts.MaxUploadBytes); err != nil {
		fail(w, r, h.logger, "/createplaylist", err)
		return
	}

	var picture multipart.File
	if file, _, err := r.FormFile("picture"); err == nil {
		defer file.Close()
		picture = file
	}

	playlist, err := h.playlists.CreatePlaylist(r.Context(), user.ID, r.FormValue("name"), picture)
	if err != nil {
		fail(w, r, h.logger, "/createplaylist", err)
		return
	}
	succeed(w, r, playlistURL(playlist.ID), "Playlist created")
}

// PlaylistPage is a playlist with its songs.
type PlaylistPage struct {
	Playlist *model.PlaylistDetail `json:"playlist"`
	IsOwner  bool                  `json:"isOwner"`
	Flash    *Flash                `json:"flash,omitempty"`
}

// HandleView → GET /Playlist/{id}
func (h *PlaylistHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}

	detail, err := h.playlists.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlaylistPage{
		Playlist: detail,
		IsOwner:  detail.OwnerID == user.ID,
		Flash:    popFlash(w, r),
	})
}

// HandleAddSong adds a song and goes back to the playlist.
//
// HTTP: GET /playlist/{id}/add/{songId}
//
// "Already in the playlist" is a notice, not a failure. Unknown ids land on
// /home, since the playlist page may not exist.
func (h *PlaylistHandler) HandleAddSong(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}
	playlistID := chi.URLParam(r, "id")
	songID := chi.URLParam(r, "songId")

	err := h.playlists.AddSong(r.Context(), user.ID, playlistID, songID)
	switch {
	case err == nil:
		succeed(w, r, playlistURL(playlistID), "Song added to playlist")
	case errors.Is(err, apperror.ErrAlreadyMember):
		setFlash(w, FlashInfo, messageFor(err))
		http.Redirect(w, r, playlistURL(playlistID), http.StatusSeeOther)
	case errors.Is(err, apperror.ErrNotFound):
		fail(w, r, h.logger, "/home", err)
	default:
		fail(w, r, h.logger, playlistURL(playlistID), err)
	}
}
