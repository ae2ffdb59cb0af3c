// Package logging provides structured logging for planfactor components,
// built on log/slog. Output goes to stderr: the MCP stdio transport owns
// stdout, so nothing else may write there.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a logger at the given level ("debug", "info", "warn",
// "error"; anything else means info) with a service attribute attached
// to every record.
func New(level, service string) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(h).With("service", service)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
