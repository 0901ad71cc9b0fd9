package model

import "time"

// DefaultPlaylistPicture is used when a playlist is created without a picture.
const DefaultPlaylistPicture = "/static/uploads/playlist-default.png"

// Playlist is a named, unordered collection of songs owned by one user.
// SongCount is derived from the membership table on read.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PicturePath string    `json:"picturePath"`
	OwnerID     string    `json:"ownerId"`
	SongCount   int       `json:"songCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasCustomPicture reports whether the picture lives in the file store.
func (p *Playlist) HasCustomPicture() bool {
	return p.PicturePath != "" && p.PicturePath != DefaultPlaylistPicture
}

// PlaylistDetail is a playlist together with its member songs.
type PlaylistDetail struct {
	Playlist
	Songs []Song `json:"songs"`
}
