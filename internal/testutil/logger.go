// Package testutil provides shared helpers for tests.
package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output. Use it to
// keep test output free of log noise; components still exercise their
// logging paths.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
