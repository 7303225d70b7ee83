// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// ParseLevel maps a config log level ("debug", "info", "warn", "error") to slog.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates the process-wide structured logger.
// When stderr is a terminal, records go through pterm's logger for readable
// output next to the chat UI. When stderr is piped (containers, CI), records
// are emitted as JSON so the platform's log collector can parse them.
func NewLogger(level string) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), ParseLevel(level))
}

func newLogger(w io.Writer, interactive bool, level slog.Level) *slog.Logger {
	if interactive {
		pl := pterm.DefaultLogger.WithWriter(w).WithLevel(ptermLevel(level))
		return slog.New(pterm.NewSlogHandler(pl))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
