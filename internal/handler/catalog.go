package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/service"
)

// CatalogHandler serves the home page, genre pages and song uploads.
type CatalogHandler struct {
	auth      *service.AuthService
	catalog   *service.CatalogService
	playlists *service.PlaylistService
	opts      Options
	logger    *slog.Logger
}

func NewCatalogHandler(
	authService *service.AuthService,
	catalog *service.CatalogService,
	playlists *service.PlaylistService,
	opts Options,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{auth: authService, catalog: catalog, playlists: playlists, opts: opts, logger: logger}
}

// HomePage is everything the home screen shows.
type HomePage struct {
	User      *model.User      `json:"user"`
	Songs     []model.Song     `json:"songs"`
	Genres    []string         `json:"genres"`
	Playlists []model.Playlist `json:"playlists"`
	Flash     *Flash           `json:"flash,omitempty"`
}

// HandleHome → GET /home
func (h *CatalogHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}

	songs, err := h.catalog.ListSongs(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}
	genres, err := h.catalog.ListGenres(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	playlists, err := h.playlists.ListPlaylists(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HomePage{
		User:      user,
		Songs:     songs,
		Genres:    genres,
		Playlists: playlists,
		Flash:     popFlash(w, r),
	})
}

// GenrePage lists the songs of one genre.
type GenrePage struct {
	Genre string       `json:"genre"`
	Songs []model.Song `json:"songs"`
}

// HandleGenre → GET /genre/{name}
//
// chi matches against RawPath when the request has one, so a genre such as
// "Drum/Bass" arrives still escaped ("Drum%2FBass") and is decoded here.
func (h *CatalogHandler) HandleGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(genre)
		if err != nil {
			writeError(w, apperror.ValidationFailed("genre", "invalid genre"))
			return
		}
		genre = decoded
	}

	songs, err := h.catalog.ListSongs(r.Context(), genre)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenrePage{Genre: genre, Songs: songs})
}

// HandleUploadPage → GET /upload
func (h *CatalogHandler) HandleUploadPage(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormPage{Page: "upload", User: user, Flash: popFlash(w, r)})
}

// HandleUpload stores a new song.
//
// HTTP: POST /upload   multipart fields: songname, genre, audiofile
func (h *CatalogHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.auth, h.logger)
	if !ok {
		return
	}
	if err := parseForm(w, r, h.opts.MaxUploadBytes); err != nil {
		fail(w, r, h.logger, "/upload", err)
		return
	}

	// A missing file leaves audio nil; the service reports it as the
	// wrong file type, the same as a non-mp3.
	var (
		filename string
		audio    multipart.File
	)
	if file, header, err := r.FormFile("audiofile"); err == nil {
		defer file.Close()
		filename, audio = header.Filename, file
	}

	_, err := h.catalog.UploadSong(r.Context(), user.ID,
		r.FormValue("songname"), r.FormValue("genre"), filename, audio)
	if err != nil {
		fail(w, r, h.logger, "/upload", err)
		return
	}
	succeed(w, r, "/home", "Song uploaded")
}
