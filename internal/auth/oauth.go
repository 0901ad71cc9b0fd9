package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	stateCookieName = "oauth_state"
)

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object; we only unmarshal the fields we need.
type GitHubUser struct {
	ID        int64  `json:"id"`    // stable, never changes
	Login     string `json:"login"` // may change; only used for the first username
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the browser to GitHub with our ClientID and a random state
//  2. The user approves on GitHub
//  3. GitHub redirects back to the callback URL with a short-lived "code"
//  4. We exchange the code for an access token (server-to-server, with ClientSecret)
//  5. We call the GitHub API with that token to learn who the user is
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" of the OAuth App.
// Example: "http://localhost:8080/auth/github/callback"
//
// Only "read:user" is requested: the numeric id and login are all we store.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: githubUserURL,
	}
}

// AuthURL returns the GitHub authorization URL for the given state.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the GitHub user's profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an incomplete user")
	}

	return &ghUser, nil
}

// SetStateCookie generates a random OAuth state, stores it in a short-lived
// cookie, and returns it for the authorization URL.
//
// When GitHub calls back, VerifyState checks the query value against the
// cookie. This proves the flow was started by this browser, not by a CSRF
// attacker completing an OAuth flow for their own account.
func SetStateCookie(w http.ResponseWriter, secure bool) string {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes to approve on GitHub
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

// VerifyState reports whether the callback's state matches the cookie, and
// clears the cookie either way: a state is single-use.
func VerifyState(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(stateCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	if err != nil || cookie.Value == "" {
		return false
	}
	return r.URL.Query().Get("state") == cookie.Value
}
