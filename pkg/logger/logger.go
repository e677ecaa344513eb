package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config is the environment surface of the logger.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

// Option adjusts logger construction.
type Option func(*settings)

type settings struct {
	output io.Writer
	attrs  []slog.Attr
}

// WithOutput redirects log output, mainly for tests. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) {
		s.attrs = append(s.attrs, attrs...)
	}
}

// New builds a slog.Logger from cfg. JSON handler for production, text
// otherwise.
func New(cfg Config, opts ...Option) *slog.Logger {
	s := &settings{output: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}

	level := parseLevel(cfg.Level)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Environment, "production") {
		handler = slog.NewJSONHandler(s.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(s.output, handlerOpts)
	}
	if len(s.attrs) > 0 {
		handler = handler.WithAttrs(s.attrs)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
