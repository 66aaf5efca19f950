// Package testutil provides shared testing utilities: a discard logger and
// a PostgreSQL test container with the chunks schema applied.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output. Use it in
// tests to reduce noise.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
