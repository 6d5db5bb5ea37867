// Package log provides the structured logger shared by the library, the HTTP
// server and the command line tool.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// LoggerOption configures a Logger.
type LoggerOption func(opts *loggerOptions)

// WithLevel sets the minimum level of emitted records.
func WithLevel(level slog.Level) LoggerOption {
	return func(opts *loggerOptions) {
		opts.level = level
	}
}

// WithDevelopment switches to colored human-readable output.
func WithDevelopment() LoggerOption {
	return func(opts *loggerOptions) {
		opts.handlerFunc = func(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
			return tint.NewHandler(w, &tint.Options{Level: opts.Level})
		}
	}
}

// WithNop discards every record.
func WithNop() LoggerOption {
	return func(opts *loggerOptions) {
		opts.handlerFunc = func(_ io.Writer, hopts *slog.HandlerOptions) slog.Handler {
			return slog.NewJSONHandler(io.Discard, hopts)
		}
	}
}

// WithWriter sets the destination of log records. Defaults to os.Stdout.
func WithWriter(w io.Writer) LoggerOption {
	return func(opts *loggerOptions) {
		opts.writer = w
	}
}

type loggerOptions struct {
	level       slog.Level
	writer      io.Writer
	handlerFunc func(w io.Writer, opts *slog.HandlerOptions) slog.Handler
}

// Logger defines the interface for structured logging.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// NewLogger creates a Logger writing JSON records at info level unless
// configured otherwise.
func NewLogger(opts ...LoggerOption) Logger {
	options := loggerOptions{
		level:  slog.LevelInfo,
		writer: os.Stdout,
		handlerFunc: func(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
			return slog.NewJSONHandler(w, opts)
		},
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &logger{
		Logger: slog.New(options.handlerFunc(options.writer, &slog.HandlerOptions{
			Level: options.level,
		})),
	}
}

// Config is the logging section of a configuration file.
type Config struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

func (c *Config) InitDefaults() {
	c.Level = "info"
}

// Options converts the configuration into logger options. An unknown level
// falls back to info.
func (c Config) Options() []LoggerOption {
	var opts []LoggerOption
	if level, ok := ParseLevel(c.Level); ok {
		opts = append(opts, WithLevel(level))
	}
	if c.Development {
		opts = append(opts, WithDevelopment())
	}
	return opts
}

type logger struct {
	*slog.Logger
}

// With returns a new Logger with the specified arguments.
func (l *logger) With(args ...any) Logger {
	return &logger{l.Logger.With(args...)}
}

// ParseLevel parses a level name case insensitively.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return -1, false
}
