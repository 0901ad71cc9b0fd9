// Package logging builds the application's *slog.Logger.
//
// charmbracelet/log renders the records (it implements slog.Handler), so
// every package keeps logging through log/slog while the output gets
// colours on a terminal and logfmt or JSON in production. When a log file
// is configured, records are also written to it through lumberjack, which
// rotates the file by size and age.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sakif/soundshelf/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger and a Closer for the log file (a no-op when
// logging to stdout only).
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	formatter, err := parseFormatter(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	return slog.New(NewHandler(w, level, formatter)), closer, nil
}

// NewHandler returns a charmbracelet/log handler writing to w.
func NewHandler(w io.Writer, level log.Level, formatter log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

func parseFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return log.TextFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	default:
		return 0, fmt.Errorf("logging: unknown format %q", format)
	}
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
