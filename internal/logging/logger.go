package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

type Level int

const (
	LevelDebug Level = iota - 4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type Config struct {
	Level  Level
	Format string // "json", "text", "dev"
	Output io.Writer
}

type logger struct {
	slog *slog.Logger
}

// API keys ride in query strings and the X-Emby-Token header; never let them
// reach the log output.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)["\s]*[:=]["\s]*([^\s"&]+)`),
	regexp.MustCompile(`(?i)x-emby-token:\s*([^\s"&]+)`),
}

// NewLogger creates a structured logger with the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = &Config{Level: LevelInfo, Format: "text"}
	}
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slog.Level(config.Level)}

	var handler slog.Handler
	switch config.Format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "dev":
		handler = &devHandler{opts: opts, output: out}
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return &logger{slog: slog.New(handler)}
}

func (l *logger) Debug(msg string, args ...any) { l.slog.Debug(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Info(msg string, args ...any)  { l.slog.Info(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Warn(msg string, args ...any)  { l.slog.Warn(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Error(msg string, args ...any) { l.slog.Error(sanitize(msg), sanitizeArgs(args)...) }

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(sanitizeArgs(args)...)}
}

func sanitize(msg string) string {
	for _, pattern := range sensitivePatterns {
		msg = pattern.ReplaceAllStringFunc(msg, func(match string) string {
			for _, sep := range []string{":", "="} {
				if parts := strings.SplitN(match, sep, 2); len(parts) == 2 {
					return parts[0] + sep + "[REDACTED]"
				}
			}
			return "[REDACTED]"
		})
	}
	return msg
}

func sanitizeArgs(args []any) []any {
	sanitized := make([]any, len(args))
	for i, arg := range args {
		if str, ok := arg.(string); ok {
			sanitized[i] = sanitize(str)
		} else {
			sanitized[i] = arg
		}
	}
	return sanitized
}

// devHandler prints compact colorized lines for local runs.
type devHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
}

func (h *devHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *devHandler) Handle(_ context.Context, record slog.Record) error {
	var color string
	switch record.Level {
	case slog.LevelDebug:
		color = "\033[36m"
	case slog.LevelWarn:
		color = "\033[33m"
	case slog.LevelError:
		color = "\033[31m"
	default:
		color = "\033[32m"
	}

	line := fmt.Sprintf("%s[%s %s]\033[0m %s",
		color, record.Time.Format("15:04:05"), strings.ToUpper(record.Level.String()), record.Message)
	record.Attrs(func(attr slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", attr.Key, attr.Value)
		return true
	})
	line += "\n"

	_, err := h.output.Write([]byte(line))
	return err
}

func (h *devHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *devHandler) WithGroup(string) slog.Handler      { return h }

var defaultLogger Logger

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	defaultLogger = l
}

// Default returns the default global logger.
func Default() Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// FiberMiddleware logs each request with method, path, status and latency.
func FiberMiddleware(log Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		}
		msg := fmt.Sprintf("%s %s - %d", c.Method(), c.Path(), status)

		switch {
		case status >= 500:
			log.Error(msg, args...)
		case status >= 400:
			log.Warn(msg, args...)
		default:
			log.Info(msg, args...)
		}
		return err
	}
}
