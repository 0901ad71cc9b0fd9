package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string "userID"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey, so only this package
// can read or write userID values in the context.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticator turns a session token into the ID of the user it belongs to.
//
// service.AuthService implements it: it checks the signature with
// TokenService and then confirms the session row still exists. The
// middleware only depends on this interface, so tests can pass a stub.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the session cookie, asks the Authenticator who it
// belongs to, and stores the user ID in the request context. Anonymous or
// stale sessions are redirected to loginPath with 303 See Other, the same
// thing a browser-facing app does when a login is required.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(authn Authenticator, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authenticate(r, authn)
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity if a valid session is present, but
// does NOT block the request if it's missing or invalid.
//
// Used on "/" which sends signed-in users to /home and everyone else to /login.
// Handlers check for the user via UserIDFromContext; ("", false) means anonymous.
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := authenticate(r, authn); ok {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous (no valid session was present).
// Returns (id, true) if the user is authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// authenticate is the private helper shared by RequireAuth and OptionalAuth.
func authenticate(r *http.Request, authn Authenticator) (string, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return "", false
	}
	userID, err := authn.Authenticate(r.Context(), token)
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}
