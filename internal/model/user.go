// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultProfilePicture is the path every new account starts with.
const DefaultProfilePicture = "/static/uploads/default.png"

// User represents a registered account.
//
// IDs are xid strings generated by the repository. Username is unique at the
// store level (UNIQUE constraint), so two accounts can never share a name
// even under concurrent signups.
//
// WHY PasswordHash HAS json:"-"?
// Page data is returned as JSON. The tag keeps the bcrypt hash out of every
// response, no matter which handler encodes the user.
//
// GitHubID is zero for accounts created through the signup form. Accounts
// created through GitHub sign-in carry the GitHub numeric id and start with
// an empty PasswordHash (see HasPassword).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	PicturePath  string    `json:"pfp"`
	IsArtist     bool      `json:"isArtist"`
	GitHubID     int64     `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account has a password set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasCustomPicture reports whether the profile picture was uploaded by the
// user (and is therefore owned by the file store).
func (u *User) HasCustomPicture() bool {
	return u.PicturePath != "" && u.PicturePath != DefaultProfilePicture
}
