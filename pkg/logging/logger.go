// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for sortvis.
//
// Output goes to two optional destinations:
//
//   - Console: stderr by default, any io.Writer via Config.Output. Disabled
//     with Config.Quiet, which the TUI uses so log lines never tear a frame.
//   - File: a daily JSON file under Config.LogDir.
//
//	┌──────────────────────────────────────────┐
//	│                 Logger                   │
//	│  ┌──────────────────┐  ┌───────────────┐ │
//	│  │ console (text or │  │ daily file    │ │
//	│  │ JSON, optional)  │  │ (JSON)        │ │
//	│  └──────────────────┘  └───────────────┘ │
//	└──────────────────────────────────────────┘
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    LogDir: "~/.sortvis/logs",
//	})
//	if err != nil {
//	    logger.Slog().Warn("file logging disabled", slog.String("error", err.Error()))
//	}
//	defer logger.Close()
//	coord, err := coordinator.New(cfg, logger.Slog())
//
// Components receive the *slog.Logger from Slog and tag themselves with a
// "component" attribute.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultService names log files and tags records when Config.Service is empty.
const DefaultService = "sortvis"

// =============================================================================
// Level
// =============================================================================

// Level is the minimum severity that is logged.
type Level int

const (
	// LevelDebug logs everything, including per-run control events.
	LevelDebug Level = iota

	// LevelInfo logs run starts and finishes.
	LevelInfo

	// LevelWarn logs recoverable problems such as a rejected config reload.
	LevelWarn

	// LevelError logs algorithm faults and startup failures.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name ("debug", "info", "warn",
// "warning", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config controls where and how records are written.
type Config struct {
	// Level is the minimum level. Default: LevelDebug (the zero value).
	Level Level

	// LogDir enables the daily JSON file when non-empty. "~" is expanded.
	LogDir string

	// Service tags every record and names the log file. Default: "sortvis".
	Service string

	// JSON switches the console handler from text to JSON.
	JSON bool

	// Quiet disables the console handler.
	Quiet bool

	// Output is the console destination. If nil, os.Stderr is used.
	Output io.Writer
}

// =============================================================================
// Logger
// =============================================================================

// Logger wraps a *slog.Logger and owns the log file, if any.
//
// Thread Safety: Safe for concurrent use. Close must be called once.
type Logger struct {
	slog *slog.Logger
	file *os.File
	path string
	mu   sync.Mutex
}

// New builds a Logger from config.
//
// # Description
//
// If the log directory or file cannot be created, New still returns a logger
// writing to the console and reports the file problem through the returned
// error, so callers can warn and continue.
//
// # Outputs
//
//   - *Logger: Never nil.
//   - error: Non-nil only when file logging was requested and failed.
func New(config Config) (*Logger, error) {
	if config.Service == "" {
		config.Service = DefaultService
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	logger := &Logger{}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	var fileErr error
	if config.LogDir != "" {
		file, path, err := openDailyFile(expandPath(config.LogDir), config.Service)
		if err != nil {
			fileErr = fmt.Errorf("open log file: %w", err)
		} else {
			logger.file = file
			logger.path = path
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}
	handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})

	logger.slog = slog.New(handler)
	return logger, fileErr
}

// Default returns an info-level console logger.
func Default() *Logger {
	l, _ := New(Config{Level: LevelInfo})
	return l
}

// With returns a Logger with extra attributes. It shares the file handle;
// only the root Logger should be closed.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog: l.slog.With(args...),
		file: l.file,
		path: l.path,
	}
}

// Slog returns the underlying *slog.Logger for injection into components.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Path returns the log file path, or "" when file logging is off.
func (l *Logger) Path() string {
	return l.path
}

// Close syncs and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := errors.Join(l.file.Sync(), l.file.Close())
	l.file = nil
	return err
}

func openDailyFile(dir, service string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, "", err
	}
	return file, path, nil
}

// =============================================================================
// Multi Handler
// =============================================================================

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
