// Package logging installs the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Setup makes a text handler writing to w at level the default logger.
func Setup(level slog.Level, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// SetupFile logs to stderr and, when path is set, also appends to path. The
// returned close function releases the file.
func SetupFile(level slog.Level, path string) (func() error, error) {
	if path == "" {
		Setup(level, os.Stderr)
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	Setup(level, io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}
