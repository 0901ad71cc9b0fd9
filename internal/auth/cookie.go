package auth

import (
	"net/http"
	"time"
)

// CookieName is the cookie holding the signed session token.
const CookieName = "session"

// SetSessionCookie stores the token in an HttpOnly cookie that lives as long
// as the token does.
//
// COOKIE FLAGS:
//   - HttpOnly: JavaScript cannot read it, so an XSS bug cannot steal it
//   - SameSite=Lax: sent on top-level navigations but not on cross-site POSTs
//   - Secure: only sent over HTTPS; enable it in production (COOKIE_SECURE)
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session token, or "" for an anonymous request.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: not an error, just anonymous
		return ""
	}
	return cookie.Value
}
