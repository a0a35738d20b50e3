package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger with the specified level
func New(level string) *Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{Logger: logger}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}

// WithMessageID returns a child logger that stamps every record with the
// correlation id of the chat turn being processed.
func (l *Logger) WithMessageID(messageID string) *Logger {
	if messageID == "" {
		return l
	}
	return &Logger{Logger: l.Logger.With("message_id", messageID)}
}

// WithProject returns a child logger scoped to a project (tenant).
func (l *Logger) WithProject(projectID string) *Logger {
	if projectID == "" {
		return l
	}
	return &Logger{Logger: l.Logger.With("project_id", projectID)}
}
