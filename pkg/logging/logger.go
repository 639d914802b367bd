// Copyright (C) 2025 FileHarbor Labs (ops@fileharbor.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for sentinel components.
//
// Built on the standard library slog package. The service runs as JSON to
// stdout (machine-parseable for the log pipeline); tests and local runs use
// the text handler. Every entry carries a "service" attribute so aggregated
// logs can be filtered by component.
//
// Basic usage:
//
//	log := logging.New(logging.Config{Service: "sentinel", JSON: true})
//	log.Info("run complete", "issues", 3)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction. The zero value yields an info-level
// text logger on stdout.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	// Unknown values fall back to info.
	Level string

	// Service is attached to every entry as the "service" attribute.
	Service string

	// JSON switches to JSON output.
	JSON bool

	// Writer overrides the destination. Default: os.Stdout.
	Writer io.Writer
}

// New builds a *slog.Logger from the config.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
