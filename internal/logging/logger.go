// Package logging configures log/slog for the server and the CLI.
//
// Request-scoped loggers pick up the id set by chi's RequestID middleware,
// so every entry written while serving a request can be correlated. Session
// work adds session_id on top, which ties background loads to the request
// that attached their source.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger, writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// The server calls it once from LOG_LEVEL and LOG_FORMAT. Prefer "json"
// where logs are shipped to a collector and "text" on a terminal.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. The CLI uses it with stderr so stdout
// stays clean for results.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
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

// FromContext returns the default logger with the request id attached, if
// ctx carries one. Contexts without an id, such as background loads and
// the CLI, get slog.Default unchanged.
//
// Usage:
//
//	func (s *Server) handleSomething(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("source attached", "file", name)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns FromContext(ctx) with extra fields, for a logger that
// carries the same context through several steps.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "store", "postgres", "limit", limit)
//	logger.Debug("listing mappings")
//	// ...
//	logger.Info("mappings listed", "count", len(rows))
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// ForSession is the logger handlers use for anything touching one session.
// Its entries carry both request_id and session_id.
func ForSession(ctx context.Context, sessionID string) *slog.Logger {
	return WithFields(ctx, "session_id", sessionID)
}
