// Package logging builds the slog loggers used by every binary.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

// New returns a logger writing to w in the given format ("pretty", "json" or
// "text") at the given level ("debug", "info", "warn", "error").
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatPretty:
		h = NewPrettyJSONHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}
	return lvl, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
