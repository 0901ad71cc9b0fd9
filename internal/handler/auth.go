package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/service"
)

// AuthHandler serves signup, login, logout and GitHub sign-in.
//
// DEPENDENCY CHAIN:
//   - auth   *service.AuthService   → accounts and sessions
//   - github *auth.GitHubProvider   → the OAuth code exchange (nil when not configured)
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider
	opts   Options
	logger *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, github *auth.GitHubProvider, opts Options, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, github: github, opts: opts, logger: logger}
}

// HandleRoot sends signed-in users home and everyone else to the login page.
//
// HTTP: GET /   (behind OptionalAuth)
func (h *AuthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleSignupPage → GET /signup
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormPage{Page: "signup", Flash: popFlash(w, r)})
}

// HandleSignup creates an account from the signup form.
//
// HTTP: POST /signup   fields: username, password, checkbox (artist)
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	// An unchecked checkbox is simply absent from the form.
	isArtist := r.PostFormValue("checkbox") != ""

	_, err := h.auth.Signup(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"), isArtist)
	if err != nil {
		fail(w, r, h.logger, "/signup", err)
		return
	}
	succeed(w, r, "/login", "Signup Successful, Please Login.")
}

// HandleLoginPage → GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormPage{Page: "login", Flash: popFlash(w, r)})
}

// HandleLogin verifies the credentials and sets the session cookie.
//
// HTTP: POST /login   fields: username, password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		fail(w, r, h.logger, "/login", err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.opts.CookieSecure)
	succeed(w, r, "/home", "Successfully Logged In")
}

// HandleLogout ends the session and clears the cookie. It always succeeds,
// even without a session.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), auth.TokenFromRequest(r))
	auth.ClearSessionCookie(w, h.opts.CookieSecure)
	succeed(w, r, "/login", "You Have Been Logged Out")
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.SetStateCookie(w, h.opts.CookieSecure)
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Sign in (or create) the linked account
//  4. Set the session cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if !auth.VerifyState(w, r) {
		h.logger.Warn("github callback: state mismatch")
		setFlash(w, FlashFail, "GitHub sign-in failed, please try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// The user pressed "Cancel" on GitHub.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		setFlash(w, FlashInfo, "GitHub sign-in was cancelled")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		setFlash(w, FlashFail, "GitHub sign-in failed, please try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		setFlash(w, FlashFail, "GitHub sign-in failed, please try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	result, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		fail(w, r, h.logger, "/login", err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.opts.CookieSecure)
	succeed(w, r, "/home", "Successfully Logged In")
}
