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
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/coordinator"
	"github.com/AleutianAI/sortvis/services/sorter/sequence"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// progressInterval bounds how often headless progress is logged.
const progressInterval = time.Second

// errRunFailed is returned when the algorithm faulted.
var errRunFailed = errors.New("sort failed")

func runHeadless(cmd *cobra.Command, args []string) error {
	name, err := chooseAlgorithm(args)
	if err != nil {
		return err
	}
	alg, err := algorithms.Resolve(name)
	if err != nil {
		return fmt.Errorf("%w (see `sortvis list`)", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	snap, err := a.execute(ctx, alg.Name)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), snap, time.Since(started))
	if strings.HasPrefix(snap.Status, "Error:") {
		return fmt.Errorf("%w: %s", errRunFailed, strings.TrimPrefix(snap.Status, "Error: "))
	}
	return nil
}

// execute runs one algorithm to completion (or until ctx is done) alongside
// the progress logger, the config watcher and the optional metrics server.
func (a *app) execute(ctx context.Context, name string) (coordinator.Snapshot, error) {
	feed, unsubscribe := a.coord.Subscribe()
	defer unsubscribe()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return a.serveMetrics(gctx) })
	g.Go(func() error { return a.watchConfig(gctx) })
	g.Go(func() error {
		logProgress(gctx, a.log, feed, rate.NewLimiter(rate.Every(progressInterval), 1))
		return nil
	})

	if err := a.coord.Start(name); err != nil {
		cancelRun()
		return coordinator.Snapshot{}, errors.Join(err, g.Wait())
	}

	g.Go(func() error {
		defer cancelRun()
		if err := a.coord.Wait(gctx); err != nil {
			a.log.Info("interrupted, stopping sort")
			a.coord.RequestStop()
			return a.coord.Wait(context.Background())
		}
		return nil
	})

	err := g.Wait()
	return a.coord.Snapshot(), err
}

// logProgress logs step snapshots from feed, at most as often as limiter
// allows, until the feed closes or ctx is done.
func logProgress(ctx context.Context, log *slog.Logger, feed <-chan sequence.StepSnapshot, limiter *rate.Limiter) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-feed:
			if !ok {
				return
			}
			if !limiter.Allow() {
				continue
			}
			log.Info("progress",
				slog.Uint64("step", snap.Step),
				slog.Int64("comparisons", snap.Comparisons),
				slog.Int64("moves", snap.Moves),
				slog.String("status", snap.Status),
			)
		}
	}
}

// chooseAlgorithm returns the argument, or asks interactively on a terminal.
func chooseAlgorithm(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if !isTerminal(os.Stdin) {
		return "", errors.New("no algorithm given; pass one of: " + strings.Join(algorithms.Names(), ", "))
	}

	opts := make([]huh.Option[string], 0, len(algorithms.All()))
	for _, a := range algorithms.All() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s  %s", a.Label, a.Complexity), a.Name))
	}

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which algorithm?").
			Options(opts...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func printSummary(w io.Writer, snap coordinator.Snapshot, elapsed time.Duration) {
	fmt.Fprintf(w, "Algorithm: %s\n", snap.Label)
	fmt.Fprintf(w, "Status: %s\n", snap.Status)
	fmt.Fprintf(w, "Time: %s | Comparisons: %d\n", snap.Complexity, snap.Comparisons)
	fmt.Fprintf(w, "Moves: %d | Steps: %d | Elapsed: %s\n", snap.Moves, snap.Step, elapsed.Round(time.Millisecond))
}

func runList(cmd *cobra.Command, _ []string) error {
	t := table.New().Headers("KEY", "NAME", "ALGORITHM", "TIME")
	for i, a := range algorithms.All() {
		t.Row(fmt.Sprintf("%d", i+1), a.Name, a.Label, a.Complexity)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}
