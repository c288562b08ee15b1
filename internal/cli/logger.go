package cli

import (
	"io"
	"log/slog"
)

// newLogger creates a logger for one command invocation. It does not set
// the global logger, so tests can run commands side by side.
//
// Diagnostics are quiet by default: warnings and errors only, everything
// down to Debug with --verbose. JSON output gets a JSON handler so both
// streams stay machine-readable.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler)
}
