package model

import "time"

// Session is a server-side login record. The session cookie carries a signed
// token whose jti claim is Session.ID; deleting the row invalidates the
// cookie immediately, even though the token itself has not expired.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
