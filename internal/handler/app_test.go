package handler_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/handler"
	"github.com/sakif/soundshelf/internal/model"
	sqliteRepo "github.com/sakif/soundshelf/internal/repository/sqlite"
	"github.com/sakif/soundshelf/internal/service"
	"github.com/sakif/soundshelf/internal/storage"
)

// testApp is the whole application behind an httptest.Server: real
// services over an in-memory database and a temp-dir file store.
type testApp struct {
	t      *testing.T
	server *httptest.Server
	db     *sqliteRepo.DB
	files  *storage.Local
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, handler.Options{MaxUploadBytes: 4 << 20})
}

func newTestAppWith(t *testing.T, opts handler.Options) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(4)

	authService := service.NewAuthService(db, db, tokens, passwords, logger)
	catalog := service.NewCatalogService(db, db, files, logger)
	playlists := service.NewPlaylistService(db, db, files, logger)
	profile := service.NewProfileService(db, passwords, files, logger)

	authH := handler.NewAuthHandler(authService, nil, opts, logger)
	catalogH := handler.NewCatalogHandler(authService, catalog, playlists, opts, logger)
	playlistH := handler.NewPlaylistHandler(authService, playlists, opts, logger)
	profileH := handler.NewProfileHandler(authService, profile, opts, logger)

	r := chi.NewRouter()
	r.Handle(files.URLPrefix()+"/*", files.Handler())
	r.With(auth.OptionalAuth(authService)).Get("/", authH.HandleRoot)
	r.Get("/signup", authH.HandleSignupPage)
	r.Post("/signup", authH.HandleSignup)
	r.Get("/login", authH.HandleLoginPage)
	r.Post("/login", authH.HandleLogin)
	r.Get("/logout", authH.HandleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, "/login"))
		r.Get("/home", catalogH.HandleHome)
		r.Get("/upload", catalogH.HandleUploadPage)
		r.Post("/upload", catalogH.HandleUpload)
		r.Get("/genre/{name}", catalogH.HandleGenre)
		r.Get("/settings/{userId}", profileH.HandleSettingsPage)
		r.Post("/settings/{userId}", profileH.HandleSettings)
		r.Post("/delete/{userId}", profileH.HandleDelete)
		r.Get("/createplaylist", playlistH.HandleCreatePage)
		r.Post("/createplaylist", playlistH.HandleCreate)
		r.Get("/Playlist/{id}", playlistH.HandleView)
		r.Get("/playlist/{id}/add/{songId}", playlistH.HandleAddSong)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testApp{t: t, server: srv, db: db, files: files}
}

// client is one browser: its own cookie jar, redirects not followed so
// tests can check where each POST sends the user.
type client struct {
	app  *testApp
	http *http.Client
}

func (a *testApp) newClient() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &client{
		app: a,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) *http.Response {
	c.app.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.app.t, err)
	c.app.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) get(path string) *http.Response {
	c.app.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.app.server.URL+path, nil)
	require.NoError(c.app.t, err)
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) *http.Response {
	c.app.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.app.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.app.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// upload is one file part of a multipart form.
type upload struct {
	field    string
	filename string
	content  []byte
}

func (c *client) postMultipart(path string, fields map[string]string, files ...upload) *http.Response {
	c.app.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(c.app.t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(c.app.t, err)
		_, err = part.Write(f.content)
		require.NoError(c.app.t, err)
	}
	require.NoError(c.app.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.app.server.URL+path, &body)
	require.NoError(c.app.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// getJSON fetches a page and decodes its JSON into v.
func (c *client) getJSON(path string, v any) *http.Response {
	c.app.t.Helper()
	resp := c.get(path)
	require.Equal(c.app.t, "application/json", resp.Header.Get("Content-Type"), "GET %s", path)
	require.NoError(c.app.t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

// flashAt loads the page at path and returns the flash it shows.
func (c *client) flashAt(path string) *handler.Flash {
	c.app.t.Helper()
	var page struct {
		Flash *handler.Flash `json:"flash"`
	}
	c.getJSON(path, &page)
	return page.Flash
}

func (c *client) signup(username, password string, artist bool) *http.Response {
	form := url.Values{"username": {username}, "password": {password}}
	if artist {
		form.Set("checkbox", "on")
	}
	return c.postForm("/signup", form)
}

func (c *client) login(username, password string) *http.Response {
	return c.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

// signedIn signs up and logs in a fresh client, returning it and its user.
func (a *testApp) signedIn(username string, artist bool) (*client, *model.User) {
	a.t.Helper()
	c := a.newClient()
	requireRedirect(a.t, c.signup(username, "password1", artist), "/login")
	requireRedirect(a.t, c.login(username, "password1"), "/home")
	return c, c.me()
}

func (c *client) me() *model.User {
	c.app.t.Helper()
	var page handler.HomePage
	resp := c.getJSON("/home", &page)
	require.Equal(c.app.t, http.StatusOK, resp.StatusCode)
	require.NotNil(c.app.t, page.User)
	return page.User
}

func requireRedirect(t *testing.T, resp *http.Response, to string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, to, resp.Header.Get("Location"))
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

var fakeMP3 = []byte("ID3\x03\x00\x00\x00\x00\x00\x00not really audio")
