package model

import "time"

// Song is one uploaded track in the catalog.
//
// Genre is a free-text label; there is no enumerated set. ArtistName is not
// stored on the row: the repository fills it from users.username when it
// reads songs, so a renamed artist shows up under the new name everywhere.
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AudioPath  string    `json:"audioPath"`
	Genre      string    `json:"genre"`
	ArtistID   string    `json:"artistId"`
	ArtistName string    `json:"artistName"`
	CreatedAt  time.Time `json:"createdAt"`
}
