package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Service string    `env:"SERVICE"`
	Version string    `env:"VERSION"`
	Env     string    `env:"ENV" envDefault:"dev"`     // e.g. "dev", "prod"
	Level   string    `env:"LEVEL" envDefault:"info"`  // e.g. "debug", "info", "warn", "error"
	Format  string    `env:"FORMAT" envDefault:"json"` // e.g. "json", "text"
	Output  io.Writer `env:"-"`                        // defaults to stdout
}

// New returns a configured slog.Logger and installs it as the default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a string to slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Secret logs only the first few characters of a credential.
func Secret(key, value string) slog.Attr {
	const keep = 6
	if len(value) <= keep {
		return slog.String(key, strings.Repeat("*", len(value)))
	}
	return slog.String(key, value[:keep]+"...")
}
