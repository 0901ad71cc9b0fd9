package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
)

// =========================================================================
// Signup TESTS
// =========================================================================

func TestSignup_StoresHashNotPassword(t *testing.T) {
	ts := newTestServices(t)

	user := ts.signup(t, "  alice  ", "hunter22", true)

	if user.Username != "alice" {
		t.Errorf("Username = %q, want trimmed %q", user.Username, "alice")
	}
	if !user.IsArtist {
		t.Error("IsArtist = false, want true")
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter22" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", user.PasswordHash)
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	ts.signup(t, "alice", "first-password", false)

	_, err := ts.auth.Signup(ctx, "alice", "second-password", true)
	wantErr(t, err, apperror.ErrDuplicateUsername)

	// The first account is untouched and still logs in.
	if _, err := ts.auth.Login(ctx, "alice", "first-password"); err != nil {
		t.Fatalf("Login() after duplicate signup error = %v", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	ts := newTestServices(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "   ", password: "pw"},
		{name: "long username", username: strings.Repeat("a", MaxNameLength+1), password: "pw"},
		{name: "empty password", username: "bob", password: ""},
		{name: "long password", username: "bob", password: strings.Repeat("p", MaxPasswordLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.auth.Signup(context.Background(), tt.username, tt.password, false)
			wantErr(t, err, apperror.ErrValidation)
		})
	}
}

// =========================================================================
// Login / Logout / Authenticate TESTS
// =========================================================================

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServices(t)
	ts.signup(t, "alice", "right-password", false)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "wrong-password"},
		{name: "unknown user", username: "nobody", password: "right-password"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.auth.Login(context.Background(), tt.username, tt.password)
			wantErr(t, err, apperror.ErrInvalidCredentials)
		})
	}
	if n := ts.store.sessionCount(); n != 0 {
		t.Errorf("failed logins created %d sessions", n)
	}
}

func TestLogin_TokenAuthenticates(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	user := ts.signup(t, "alice", "pw-alice", false)

	result, err := ts.auth.Login(ctx, "alice", "pw-alice")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != user.ID || result.Token == "" {
		t.Fatalf("Login() = %+v", result)
	}

	got, err := ts.auth.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got != user.ID {
		t.Errorf("Authenticate() = %q, want %q", got, user.ID)
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.signup(t, "alice", "pw-alice", false)

	result, err := ts.auth.Login(ctx, "alice", "pw-alice")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	ts.auth.Logout(ctx, result.Token)

	_, err = ts.auth.Authenticate(ctx, result.Token)
	wantErr(t, err, apperror.ErrUnauthorized)
	if n := ts.store.sessionCount(); n != 0 {
		t.Errorf("sessions after logout = %d, want 0", n)
	}
}

func TestLogout_NeverFails(t *testing.T) {
	ts := newTestServices(t)

	// None of these may panic; there is no error to return.
	ts.auth.Logout(context.Background(), "")
	ts.auth.Logout(context.Background(), "garbage")
}

func TestAuthenticate_RejectsExpiredSession(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.signup(t, "alice", "pw-alice", false)

	result, err := ts.auth.Login(ctx, "alice", "pw-alice")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Move the clock past the session row's expiry; the token's own expiry
	// is checked against the real clock, so only the row check can fail.
	ts.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = ts.auth.Authenticate(ctx, result.Token)
	wantErr(t, err, apperror.ErrUnauthorized)
}

func TestAuthenticate_RejectsForeignToken(t *testing.T) {
	ts := newTestServices(t)
	other, err := auth.NewTokenService("another-secret-of-enough-length", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, _ := other.Generate("user-1", "session-1")

	_, err = ts.auth.Authenticate(context.Background(), token)
	wantErr(t, err, apperror.ErrUnauthorized)
}

func TestLogin_PurgesExpiredSessions(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.signup(t, "alice", "pw-alice", false)

	if _, err := ts.auth.Login(ctx, "alice", "pw-alice"); err != nil {
		t.Fatal(err)
	}
	ts.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := ts.auth.Login(ctx, "alice", "pw-alice"); err != nil {
		t.Fatal(err)
	}

	if n := ts.store.sessionCount(); n != 1 {
		t.Errorf("sessions = %d, want 1 (the expired one purged)", n)
	}
}

// =========================================================================
// GitHub TESTS
// =========================================================================

func TestLoginGitHub_CreatesThenReuses(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	first, err := ts.auth.LoginGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "octocat"})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}
	if first.User.Username != "octocat" || first.User.IsArtist || first.User.HasPassword() {
		t.Errorf("new GitHub user = %+v", first.User)
	}

	second, err := ts.auth.LoginGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "renamed-on-github"})
	if err != nil {
		t.Fatalf("second LoginGitHub() error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second login created a new account: %s != %s", second.User.ID, first.User.ID)
	}
}

func TestLoginGitHub_UsernameCollision(t *testing.T) {
	ts := newTestServices(t)
	ts.signup(t, "octocat", "pw", false)
	ts.signup(t, "octocat-2", "pw", false)

	result, err := ts.auth.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "octocat"})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}
	if result.User.Username != "octocat-3" {
		t.Errorf("Username = %q, want %q", result.User.Username, "octocat-3")
	}
}

func TestLoginGitHub_CannotUseForm(t *testing.T) {
	ts := newTestServices(t)
	if _, err := ts.auth.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 9, Login: "gh"}); err != nil {
		t.Fatal(err)
	}

	_, err := ts.auth.Login(context.Background(), "gh", "anything")
	wantErr(t, err, apperror.ErrInvalidCredentials)
}

func TestLoginGitHub_NilUser(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.auth.LoginGitHub(context.Background(), nil)
	if err == nil || errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("LoginGitHub(nil) error = %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	ts := newTestServices(t)
	user := ts.signup(t, "alice", "pw", false)

	got, err := ts.auth.CurrentUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q", got.Username)
	}

	_, err = ts.auth.CurrentUser(context.Background(), "missing")
	wantErr(t, err, apperror.ErrNotFound)
}
