// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/sortvis/cmd/sortvis/config"
	"github.com/AleutianAI/sortvis/pkg/logging"
	"github.com/AleutianAI/sortvis/services/sorter/coordinator"
	"github.com/AleutianAI/sortvis/services/sorter/telemetry"
	"github.com/spf13/cobra"
)

// app holds everything a command needs: config, logger, telemetry and the
// coordinator.
type app struct {
	cfgPath string
	cfg     config.SortvisConfig
	logger  *logging.Logger
	log     *slog.Logger
	coord   *coordinator.Coordinator

	shutdownTelemetry func(context.Context) error

	// pacingMu guards lastPacing, the pacing section last applied from the file.
	pacingMu   sync.Mutex
	lastPacing config.PacingConfig
}

// newApp loads the config, applies flag overrides and builds the stack.
//
// quiet turns console logging off; the TUI uses it so log lines never land
// on top of a frame.
func newApp(ctx context.Context, cmd *cobra.Command, quiet bool) (*app, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, created, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyFlagOverrides(cmd, &cfg); err != nil {
		return nil, err
	}

	logCfg := cfg.LoggingFor(quiet)
	logCfg.Output = cmd.ErrOrStderr()
	logger, logErr := logging.New(logCfg)
	log := logger.Slog().With(slog.String("component", "cli"))
	if logErr != nil {
		log.Warn("file logging disabled", slog.String("error", logErr.Error()))
	}
	if created {
		log.Info("first run, created config", slog.String("path", path))
	}

	telCfg := cfg.TelemetryFor()
	telCfg.Output = cmd.ErrOrStderr()
	if quiet {
		telCfg.Output = io.Discard
	}
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	coord, err := coordinator.New(cfg.Coordinator(), logger.Slog())
	if err != nil {
		_ = shutdown(context.Background())
		_ = logger.Close()
		return nil, err
	}

	return &app{
		cfgPath:           path,
		cfg:               cfg,
		logger:            logger,
		log:               log,
		coord:             coord,
		shutdownTelemetry: shutdown,
		lastPacing:        cfg.Pacing,
	}, nil
}

// applyFlagOverrides layers command-line flags over the file.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.SortvisConfig) error {
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = logLevel
	}
	if sizeFlag > 0 {
		cfg.Sequence.Size = sizeFlag
	}
	if seedFlag != 0 {
		cfg.Sequence.Seed = seedFlag
	}
	if slowFlag {
		cfg.Pacing.FastMode = false
	}
	if metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = metricsAddr
	}
	if f := cmd.Flags().Lookup("delay"); f != nil && f.Changed && delayFlag >= 0 {
		cfg.Pacing.FastDelay = delayFlag
		cfg.Pacing.SlowDelay = delayFlag
	}
	return config.Validate(*cfg)
}

// watchConfig hot-reloads pacing from the config file until ctx is done.
func (a *app) watchConfig(ctx context.Context) error {
	return config.Watch(ctx, a.cfgPath, 0, a.logger.Slog(), a.applyPacing)
}

// applyPacing pushes reloaded delays into the coordinator. Fast mode is only
// applied when the file value changed, so a reload of unrelated keys does not
// undo a speed toggle made in the TUI.
func (a *app) applyPacing(cfg config.SortvisConfig) {
	a.pacingMu.Lock()
	defer a.pacingMu.Unlock()

	a.coord.SetDelays(cfg.Pacing.FastDelay, cfg.Pacing.SlowDelay)
	if cfg.Pacing.FastMode != a.lastPacing.FastMode {
		a.coord.SetFastMode(cfg.Pacing.FastMode)
	}
	a.lastPacing = cfg.Pacing
}

// serveMetrics serves /metrics until ctx is done. It returns nil at once when
// no address is configured.
func (a *app) serveMetrics(ctx context.Context) error {
	addr := a.cfg.Telemetry.MetricsAddr
	if addr == "" {
		return nil
	}

	srv := telemetry.NewMetricsServer(addr)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("serving metrics", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close stops the coordinator, flushes telemetry and closes the log file.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(
		a.coord.Close(),
		a.shutdownTelemetry(ctx),
		a.logger.Close(),
	)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.WriteDefault(path, forceInit); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}
