package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/townwire/townwire/internal/config"
)

// New constructs a slog.Logger configured according to the provided settings.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter builds a logger writing to an explicit destination; tests use
// this to capture output.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}

// Fallback returns a JSON logger with defaults, for use before config loads.
func Fallback() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
