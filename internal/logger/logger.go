// Package logger configures the structured logger used by the sri-gateway binaries
// and carries a per-request logger through the request context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LevelNone disables logging when passed to InitLogger.
const LevelNone = slog.Level(math.MaxInt32)

type contextKey int

const (
	loggerKey contextKey = iota
	attrsKey
)

// InitLogger creates the application logger and sets it as the slog default.
//
// dev and test environments get human readable coloured output (tint),
// staging and prod get JSON so the output can be ingested by a log pipeline.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	return initLogger(os.Stdout, level, environment)
}

func initLogger(w io.Writer, level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	switch environment {
	case "prod", "staging":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLogLevel converts a LOG_LEVEL string to a slog.Level.
// Unknown values default to info; "none" disables logging.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	default:
		return slog.LevelInfo
	}
}

// logAttrs collects attributes added while a request is being handled.
// They are written on the final request log line.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogger returns a copy of ctx carrying l.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// ContextRequestLogger returns the request scoped logger, or the default logger
// when the context does not carry one.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ContextWithLogAttrs adds attributes to the final request log line.
// It is a no-op when the context was not prepared by RequestLogging.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	if ctx == nil {
		return
	}
	la, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return
	}
	la.mu.Lock()
	la.attrs = append(la.attrs, attrs...)
	la.mu.Unlock()
}

func contextLogAttrs(ctx context.Context) []slog.Attr {
	la, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	la.mu.Lock()
	defer la.mu.Unlock()
	out := make([]slog.Attr, len(la.attrs))
	copy(out, la.attrs)
	return out
}
