// Package main is the entry point for the SoundShelf server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (config file, .env, environment)
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// COMMANDS:
//
//	soundshelf [serve] [--config config.toml]   run the web server (default)
//	soundshelf init-config [path]               write an example config file
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/sakif/soundshelf/internal/config"
	"github.com/sakif/soundshelf/internal/logging"
	"github.com/sakif/soundshelf/internal/server"
)

const defaultConfigPath = "config.toml"

func main() {
	app := &cli.Command{
		Name:  "soundshelf",
		Usage: "Share songs and build playlists",
		Flags: []cli.Flag{configFlag()},
		// Running without a subcommand serves, so `soundshelf` alone works.
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web server",
				Flags:  []cli.Flag{configFlag()},
				Action: serve,
			},
			{
				Name:  "init-config",
				Usage: "Write an example configuration file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path", Value: defaultConfigPath},
				},
				Action: initConfig,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "soundshelf:", err)
		os.Exit(1)
	}
}

// configFlag is built per command; urfave/cli keeps parsed state in the flag.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (default: ./config.toml when present)",
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	// Without a configured secret, every restart signs users out.
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn("no jwt_secret configured, using a random one; sessions will not survive a restart")
	}

	// sqlite creates the file but not its directory.
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Cancelled on Ctrl+C or SIGTERM; Start then shuts down gracefully.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func initConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		path = defaultConfigPath
	}
	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s\n", path)
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
