package scalardex

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/scalardex/index"
)

// Logger wraps slog.Logger with scalardex-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		})),
	}
}

// WithKind adds the selected variant kind to the logger.
func (l *Logger) WithKind(kind index.Kind) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind.String()),
	}
}

// WithNamespace adds a storage namespace field to the logger.
func (l *Logger) WithNamespace(namespace string) *Logger {
	return &Logger{
		Logger: l.Logger.With("namespace", namespace),
	}
}

// LogBuild logs a build operation.
func (l *Logger) LogBuild(ctx context.Context, kind index.Kind, rows, distinct int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"kind", kind.String(),
			"rows", rows,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"kind", kind.String(),
			"rows", rows,
			"distinct", distinct,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, kind index.Kind, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"kind", kind.String(),
			"rows", rows,
		)
	}
}

// LogUpload logs an upload operation.
func (l *Logger) LogUpload(ctx context.Context, namespace string, written, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed",
			"namespace", namespace,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "upload completed",
			"namespace", namespace,
			"blobs_written", written,
			"blobs_skipped", skipped,
		)
	}
}
