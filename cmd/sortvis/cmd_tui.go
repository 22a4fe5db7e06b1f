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

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.watchConfig(gctx) })
	g.Go(func() error { return a.serveMetrics(gctx) })

	model := tui.New(a.coord, algorithms.All(), 0)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	_, runErr := p.Run()

	cancel()
	return errors.Join(runErr, g.Wait())
}
