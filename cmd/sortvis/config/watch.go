// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watch re-reads path whenever it changes and hands valid results to onChange.
//
// # Description
//
// The parent directory is watched rather than the file, so atomic saves
// (write to a temp file, rename over the original) are seen. Events are
// debounced. A file that fails to parse or validate is logged and skipped;
// the previous settings stay in force.
//
// # Inputs
//
//   - ctx: Watch runs until ctx is done.
//   - path: The config file.
//   - debounce: Quiet period before reloading. Zero uses DefaultDebounce.
//   - logger: Receives reload and rejection events.
//   - onChange: Called from the watch goroutine with each valid config.
//
// # Outputs
//
//   - error: Non-nil only if the watcher could not be set up.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(SortvisConfig)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger = logger.With(slog.String("component", "config_watcher"), slog.String("path", path))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timerC = nil
			cfg, err := read(target)
			if err != nil {
				logger.Warn("config reload rejected", slog.String("error", err.Error()))
				continue
			}
			logger.Info("config reloaded")
			onChange(cfg)
		}
	}
}
