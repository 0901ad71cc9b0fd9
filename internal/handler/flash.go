package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "flash"

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashFail    = "fail"
	FlashInfo    = "info"
)

// Flash is a one-shot message set by a POST handler and shown (then
// cleared) by the next page-data GET.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// setFlash stores the message in a cookie. The JSON is base64 encoded
// because cookie values cannot hold quotes, commas or spaces.
func setFlash(w http.ResponseWriter, kind, message string) {
	data, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}
