package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
)

// maxGitHubNameAttempts bounds the "-2", "-3", ... suffix search when a
// GitHub login collides with an existing username.
const maxGitHubNameAttempts = 20

// AuthService handles signup, login, logout and session checks.
//
//	AuthHandler (HTTP) → AuthService → UserRepository, SessionRepository
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It implements auth.Authenticator, which is what RequireAuth calls on every
// protected request.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

var _ auth.Authenticator = (*AuthService)(nil)

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult bundles the signed-in user and the session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup creates an account. The username must be unique
// (apperror.ErrDuplicateUsername otherwise); the password is stored only as
// a bcrypt hash.
func (s *AuthService) Signup(ctx context.Context, username, password string, isArtist bool) (*model.User, error) {
	username, err := requireName("username", "username", username)
	if err != nil {
		return nil, err
	}
	if err := requirePassword("password", password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		IsArtist:     isArtist,
	}
	// No existence check first: the UNIQUE constraint decides, so two
	// concurrent signups for one name cannot both win.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Bool("artist", user.IsArtist),
	)
	return user, nil
}

// Login verifies the credentials and starts a session.
//
// An unknown username and a wrong password both return
// apperror.ErrInvalidCredentials, so the response does not reveal which
// usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}
	// Password-less (GitHub) accounts cannot use the form.
	if !user.HasPassword() {
		return nil, apperror.InvalidCredentials()
	}
	if err := checkPassword(s.passwords, user, password); err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			s.logger.Info("login failed", slog.String("username", username))
		}
		return nil, err
	}

	return s.startSession(ctx, user)
}

// LoginGitHub signs in the account linked to a GitHub identity, creating a
// non-artist account on first sign-in.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	base := strings.TrimSpace(gh.Login)
	if len(base) > MaxNameLength-4 {
		base = base[:MaxNameLength-4]
	}
	if base == "" {
		base = "github-" + strconv.FormatInt(gh.ID, 10)
	}

	for attempt := 1; attempt <= maxGitHubNameAttempts; attempt++ {
		name := base
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d", base, attempt)
		}
		user := &model.User{Username: name, GitHubID: gh.ID}

		err := s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user signed up via GitHub",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
				slog.Int64("githubID", gh.ID),
			)
			return user, nil
		}
		if !errors.Is(err, apperror.ErrDuplicateUsername) {
			return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", gh.ID, err)
		}
	}
	return nil, apperror.DuplicateUsername()
}

// startSession stores a session row and signs a token bound to it.
// Expired rows are purged here: logins are frequent enough to keep the
// table small without a background job.
func (s *AuthService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	now := s.now()

	if n, err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		s.logger.Warn("purging expired sessions failed", slog.String("error", err.Error()))
	} else if n > 0 {
		s.logger.Debug("purged expired sessions", slog.Int64("count", n))
	}

	session := &model.Session{
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, session.ID)
	if err != nil {
		if delErr := s.sessions.DeleteSession(ctx, session.ID); delErr != nil {
			s.logger.Warn("removing unused session failed",
				slog.String("sessionID", session.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: signing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("sessionID", session.ID),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Logout ends the session the token refers to. It never fails: a missing,
// expired or forged token simply has no session to delete.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		// Nothing to delete: expired rows are purged on the next login.
		return
	}
	if err := s.sessions.DeleteSession(ctx, claims.SessionID); err != nil {
		s.logger.Warn("deleting session failed",
			slog.String("sessionID", claims.SessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("user logged out",
		slog.String("userID", claims.UserID),
		slog.String("sessionID", claims.SessionID),
	)
}

// Authenticate returns the user ID behind a session token.
//
// The token must be well signed and unexpired, AND its session row must
// still exist for the same user. Logging out or deleting the account
// removes the row, which is what makes the cookie stop working at once.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return "", apperror.Unauthorized("session is invalid or expired")
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("session has ended")
		}
		return "", fmt.Errorf("service/auth: loading session: %w", err)
	}
	if session.UserID != claims.UserID || session.Expired(s.now()) {
		return "", apperror.Unauthorized("session has ended")
	}

	return claims.UserID, nil
}

// SessionTTL is how long a new session lasts; the cookie uses the same lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// CurrentUser loads the signed-in user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}
