// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// It decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB, TokenService, PasswordService, FileStore
//	             → Auth/Catalog/Playlist/Profile services
//	             → handlers → routes
//
// This is the "composition root" pattern: every dependency is built in New,
// rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/config"
	"github.com/sakif/soundshelf/internal/handler"
	"github.com/sakif/soundshelf/internal/middleware"
	sqliteRepo "github.com/sakif/soundshelf/internal/repository/sqlite"
	"github.com/sakif/soundshelf/internal/service"
	"github.com/sakif/soundshelf/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it once the HTTP
// server has shut down, so pending WAL writes are flushed and the file lock
// is released.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New creates a Server from a validated configuration.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` to avoid confusion with
// the modernc sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown; tests that never
// call Start call it themselves.
func (s *Server) Close() error {
	return s.db.Close()
}

// newFileStore picks the storage backend. The local backend is also
// returned on its own so its files can be served from this server; Qiniu
// files are served by the bucket's own domain.
func newFileStore(cfg config.StorageConfig) (storage.FileStore, *storage.Local, error) {
	switch strings.ToLower(cfg.Backend) {
	case "qiniu":
		q, err := storage.NewQiniu(storage.QiniuConfig{
			AccessKey: cfg.Qiniu.AccessKey,
			SecretKey: cfg.Qiniu.SecretKey,
			Bucket:    cfg.Qiniu.Bucket,
			Domain:    cfg.Qiniu.Domain,
			KeyPrefix: cfg.Qiniu.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return q, nil, nil
	default:
		local, err := storage.NewLocal(cfg.Root, cfg.URLPrefix)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET      /                             → redirect to /home or /login
//	GET/POST /signup, /login               → page data / form submit
//	GET      /logout                       → end the session
//	GET      /auth/github/login, /callback → GitHub sign-in (when configured)
//	GET      /home                         → songs, genres, own playlists
//	GET/POST /upload                       → upload an MP3 (artists only)
//	GET      /genre/{name}                 → songs in one genre
//	GET/POST /settings/{userId}            → rename, password, picture
//	POST     /delete/{userId}              → delete the account
//	GET/POST /createplaylist               → create a playlist
//	GET      /Playlist/{id}                → playlist with its songs
//	GET      /playlist/{id}/add/{songId}   → add a song
//	GET      /media/*                      → stored files (local backend)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers (rate limiting keys on it)
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Core services ===
	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret, s.cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(s.cfg.Auth.BcryptCost)

	files, local, err := newFileStore(s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating file store: %w", err)
	}

	authService := service.NewAuthService(s.db, s.db, tokens, passwords, s.logger)
	catalogService := service.NewCatalogService(s.db, s.db, files, s.logger)
	playlistService := service.NewPlaylistService(s.db, s.db, files, s.logger)
	profileService := service.NewProfileService(s.db, passwords, files, s.logger)

	var github *auth.GitHubProvider
	if gh := s.cfg.Auth.GitHub; gh.Enabled() {
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	}

	opts := handler.Options{
		CookieSecure:   s.cfg.Server.CookieSecure,
		MaxUploadBytes: s.cfg.Storage.MaxUploadMB << 20,
	}
	authHandler := handler.NewAuthHandler(authService, github, opts, s.logger)
	catalogHandler := handler.NewCatalogHandler(authService, catalogService, playlistService, opts, s.logger)
	playlistHandler := handler.NewPlaylistHandler(authService, playlistService, opts, s.logger)
	profileHandler := handler.NewProfileHandler(authService, profileService, opts, s.logger)

	// === Stored files ===
	if local != nil {
		s.router.Handle(local.URLPrefix()+"/*", local.Handler())
	}

	// === Public routes ===
	s.router.With(auth.OptionalAuth(authService)).Get("/", authHandler.HandleRoot)
	s.router.Get("/signup", authHandler.HandleSignupPage)
	s.router.Get("/login", authHandler.HandleLoginPage)
	s.router.Get("/logout", authHandler.HandleLogout)

	// Credential endpoints are rate limited per client address.
	s.router.Group(func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			s.limiter = middleware.NewRateLimiter(s.cfg.RateLimit.RequestsPerMinute, s.cfg.RateLimit.Burst, s.logger)
			r.Use(s.limiter.Middleware)
		}
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Signed-in routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, "/login"))

		r.Get("/home", catalogHandler.HandleHome)
		r.Get("/upload", catalogHandler.HandleUploadPage)
		r.Post("/upload", catalogHandler.HandleUpload)
		r.Get("/genre/{name}", catalogHandler.HandleGenre)

		r.Get("/settings/{userId}", profileHandler.HandleSettingsPage)
		r.Post("/settings/{userId}", profileHandler.HandleSettings)
		r.Post("/delete/{userId}", profileHandler.HandleDelete)

		r.Get("/createplaylist", playlistHandler.HandleCreatePage)
		r.Post("/createplaylist", playlistHandler.HandleCreate)
		r.Get("/Playlist/{id}", playlistHandler.HandleView)
		r.Get("/playlist/{id}", playlistHandler.HandleView)
		r.Get("/playlist/{id}/add/{songId}", playlistHandler.HandleAddSong)
	})

	return nil
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
//
// main.go cancels ctx on SIGINT/SIGTERM via signal.NotifyContext.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads can be large; the body limit is enforced per handler.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx, time.Minute)
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.cfg.Database.Path),
			slog.String("storage", s.cfg.Storage.Backend),
			slog.Bool("github", s.cfg.Auth.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
