// Package auth provides password hashing, signed session tokens, session
// cookies, authentication middleware and GitHub sign-in.
//
// SESSION FLOW OVERVIEW:
//  1. POST /login verifies the password and creates a sessions row
//  2. TokenService signs a JWT whose "sub" is the user ID and whose "jti"
//     is the session ID; the token goes into an HttpOnly cookie
//  3. On every protected request, RequireAuth hands the cookie value to an
//     Authenticator, which checks the signature AND that the session row
//     still exists
//  4. GET /logout deletes the row, so the cookie stops working at once
//
// WHY A SESSION ROW IF JWT IS STATELESS?
// A bare JWT stays valid until it expires, so "logout" could only delete the
// browser's copy. Binding the token to a row gives logout and account deletion
// immediate effect, while the signature still stops forged cookies before
// any database lookup happens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "soundshelf"

// DefaultSessionTTL is how long a login lasts when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// ErrTokenExpired is returned by Validate for a well-signed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A non-positive ttl falls back to DefaultSessionTTL.
// Example secret: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// SessionClaims is what a valid token says about its bearer.
type SessionClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// claims is the JWT payload. "sub" holds the user ID and "jti" the session ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token for the given user and session, valid for TTL().
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric and fast; fine for a
// single server that both issues and checks the cookie.
func (s *TokenService) Generate(userID, sessionID string) (string, error) {
	return s.GenerateWithDuration(userID, sessionID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, sessionID string, d time.Duration) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.New("auth: user ID and session ID are required")
	}
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches
//   - Algorithm is HS256 (prevents "alg: none" confusion attacks)
//
// Validate does not know whether the session row still exists; that check
// belongs to the Authenticator (service.AuthService).
func (s *TokenService) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("auth: token has no subject or session")
	}

	return &SessionClaims{
		UserID:    c.Subject,
		SessionID: c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
