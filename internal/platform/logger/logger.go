package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stdout.
// Audit-relevant events go through the audit publisher, not this logger;
// this is for operational logs only.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
