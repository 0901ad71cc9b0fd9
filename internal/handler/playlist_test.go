package handler_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/soundshelf/internal/handler"
	"github.com/sakif/soundshelf/internal/model"
)

// createPlaylist creates a playlist and returns its id, taken from the
// redirect to /Playlist/{id}.
func createPlaylist(t *testing.T, c *client, name string, picture ...upload) string {
	t.Helper()
	resp := c.postMultipart("/createplaylist", map[string]string{"name": name}, picture...)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/Playlist/"), loc)
	return strings.TrimPrefix(loc, "/Playlist/")
}

func firstSong(t *testing.T, c *client) model.Song {
	t.Helper()
	var home handler.HomePage
	c.getJSON("/home", &home)
	require.NotEmpty(t, home.Songs)
	return home.Songs[0]
}

func TestCreatePlaylistAndAddSong(t *testing.T) {
	app := newTestApp(t)
	artist, _ := app.signedIn("bowie", true)
	requireRedirect(t, uploadSong(artist, "Heroes", "rock", "heroes.mp3"), "/home")

	c, me := app.signedIn("alice", false)
	id := createPlaylist(t, c, "Road trip")
	song := firstSong(t, c)

	var page handler.PlaylistPage
	c.getJSON("/Playlist/"+id, &page)
	require.NotNil(t, page.Flash)
	assert.Equal(t, "Playlist created", page.Flash.Message)
	assert.True(t, page.IsOwner)
	assert.Equal(t, "Road trip", page.Playlist.Name)
	assert.Equal(t, me.ID, page.Playlist.OwnerID)
	assert.Equal(t, model.DefaultPlaylistPicture, page.Playlist.PicturePath)
	assert.Empty(t, page.Playlist.Songs)

	requireRedirect(t, c.get("/playlist/"+id+"/add/"+song.ID), "/Playlist/"+id)
	c.getJSON("/Playlist/"+id, &page)
	assert.Equal(t, handler.FlashSuccess, page.Flash.Kind)
	require.Len(t, page.Playlist.Songs, 1)
	assert.Equal(t, song.ID, page.Playlist.Songs[0].ID)

	// Adding it again is a notice; membership is unchanged.
	requireRedirect(t, c.get("/playlist/"+id+"/add/"+song.ID), "/Playlist/"+id)
	page = handler.PlaylistPage{}
	c.getJSON("/Playlist/"+id, &page)
	require.NotNil(t, page.Flash)
	assert.Equal(t, handler.FlashInfo, page.Flash.Kind)
	assert.Len(t, page.Playlist.Songs, 1)

	var home handler.HomePage
	c.getJSON("/home", &home)
	require.Len(t, home.Playlists, 1)
	assert.Equal(t, 1, home.Playlists[0].SongCount)
}

func TestCreatePlaylistWithPicture(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.signedIn("alice", false)

	id := createPlaylist(t, c, "Covers", upload{field: "picture", filename: "../../cover.png", content: pngOf(t, 800, 800)})

	var page handler.PlaylistPage
	c.getJSON("/Playlist/"+id, &page)
	assert.True(t, strings.HasPrefix(page.Playlist.PicturePath, "/media/playlists/"), page.Playlist.PicturePath)
	assert.True(t, strings.HasSuffix(page.Playlist.PicturePath, ".png"))
	assert.Equal(t, http.StatusOK, c.get(page.Playlist.PicturePath).StatusCode)
}

func TestCreatePlaylistRejections(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.signedIn("alice", false)

	resp := c.postMultipart("/createplaylist", map[string]string{"name": ""})
	requireRedirect(t, resp, "/createplaylist")
	assert.Equal(t, handler.FlashFail, c.flashAt("/createplaylist").Kind)

	resp = c.postMultipart("/createplaylist", map[string]string{"name": "Bad"},
		upload{field: "picture", filename: "cover.png", content: []byte("not an image")})
	requireRedirect(t, resp, "/createplaylist")
	assert.Equal(t, handler.FlashFail, c.flashAt("/createplaylist").Kind)

	// Plain urlencoded forms work too when there is no picture.
	resp = c.postForm("/createplaylist", url.Values{"name": {"Plain"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/Playlist/"))
}

func TestAddSongErrors(t *testing.T) {
	app := newTestApp(t)
	artist, _ := app.signedIn("bowie", true)
	requireRedirect(t, uploadSong(artist, "Heroes", "rock", "heroes.mp3"), "/home")

	owner, _ := app.signedIn("alice", false)
	id := createPlaylist(t, owner, "Mine")
	song := firstSong(t, owner)

	// Unknown song or playlist lands on /home.
	requireRedirect(t, owner.get("/playlist/"+id+"/add/nosuchsong"), "/home")
	assert.Equal(t, handler.FlashFail, owner.flashAt("/home").Kind)
	requireRedirect(t, owner.get("/playlist/nosuchlist/add/"+song.ID), "/home")
	assert.Equal(t, handler.FlashFail, owner.flashAt("/home").Kind)

	// Someone else's playlist.
	other, _ := app.signedIn("carol", false)
	requireRedirect(t, other.get("/playlist/"+id+"/add/"+song.ID), "/Playlist/"+id)
	var page handler.PlaylistPage
	other.getJSON("/Playlist/"+id, &page)
	assert.False(t, page.IsOwner)
	require.NotNil(t, page.Flash)
	assert.Equal(t, "you can only add songs to your own playlists", page.Flash.Message)
	assert.Empty(t, page.Playlist.Songs)
}

func TestViewUnknownPlaylist(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.signedIn("alice", false)

	var errResp handler.ErrorResponse
	resp := c.getJSON("/Playlist/nosuchlist", &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errResp.Error)
}
