// Package config loads the server configuration.
//
// Sources, lowest precedence first:
//  1. the embedded config.example.toml (the defaults)
//  2. an optional TOML file given with --config
//  3. a .env file in the working directory, if present
//  4. environment variables
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const minSecretLength = 16

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	CookieSecure bool   `toml:"cookie_secure"`
}

// Addr is the listen address, e.g. ":8080".
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret  string        `toml:"jwt_secret"`
	SessionTTL time.Duration `toml:"session_ttl"`
	BcryptCost int           `toml:"bcrypt_cost"`
	GitHub     GitHubConfig  `toml:"github"`
}

type GitHubConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// Enabled reports whether GitHub sign-in should be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type StorageConfig struct {
	Backend     string      `toml:"backend"`
	Root        string      `toml:"root"`
	URLPrefix   string      `toml:"url_prefix"`
	MaxUploadMB int64       `toml:"max_upload_mb"`
	Qiniu       QiniuConfig `toml:"qiniu"`
}

type QiniuConfig struct {
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Domain    string `toml:"domain"`
	KeyPrefix string `toml:"key_prefix"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

// Default returns the configuration in the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("config: parsing embedded defaults: %v", err))
	}
	return &cfg
}

// Load builds the configuration from defaults, the optional file at path,
// .env, and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	// A missing .env is normal; anything else (bad syntax) is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Host, "HOST")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.GitHub.ClientID, "GITHUB_CLIENT_ID")
	setString(&c.Auth.GitHub.ClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.Auth.GitHub.CallbackURL, "GITHUB_CALLBACK_URL")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Root, "STORAGE_ROOT")
	setString(&c.Storage.Qiniu.AccessKey, "QINIU_ACCESS_KEY")
	setString(&c.Storage.Qiniu.SecretKey, "QINIU_SECRET_KEY")
	setString(&c.Storage.Qiniu.Bucket, "QINIU_BUCKET")
	setString(&c.Storage.Qiniu.Domain, "QINIU_DOMAIN")
	setString(&c.Storage.Qiniu.KeyPrefix, "QINIU_KEY_PREFIX")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.File, "LOG_FILE")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid COOKIE_SECURE %q: %w", v, err)
		}
		c.Server.CookieSecure = secure
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid SESSION_TTL %q: %w", v, err)
		}
		c.Auth.SessionTTL = ttl
	}

	if c.Auth.GitHub.CallbackURL == "" {
		c.Auth.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Server.Port)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports the first setting that would stop the server from working.
// An empty JWT secret is allowed; the caller generates one.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("config: database path is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: jwt_secret must be at least %d characters", minSecretLength)
	}
	if c.Auth.SessionTTL < 0 {
		return errors.New("config: session_ttl must not be negative")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return errors.New("config: max_upload_mb must be positive")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "local":
		if c.Storage.Root == "" {
			return errors.New("config: storage root is required for the local backend")
		}
	case "qiniu":
		q := c.Storage.Qiniu
		if q.AccessKey == "" || q.SecretKey == "" || q.Bucket == "" || q.Domain == "" {
			return errors.New("config: qiniu backend needs access_key, secret_key, bucket and domain")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "logfmt", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("config: rate_limit needs positive requests_per_minute and burst")
	}
	return nil
}

// WriteExample writes the example configuration to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
