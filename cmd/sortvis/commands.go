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
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath  string
	logLevel    string
	metricsAddr string
	sizeFlag    int
	seedFlag    int64
	slowFlag    bool
	delayFlag   time.Duration
	forceInit   bool

	rootCmd = &cobra.Command{
		Use:   "sortvis",
		Short: "Watch sorting algorithms work, one comparison at a time",
		Long: `sortvis animates eight sorting algorithms over a shared array of bars.
On a terminal it opens the interactive visualizer; otherwise it runs
quicksort headless and prints a summary.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(os.Stdout) {
				return runTUI(cmd, args)
			}
			return runHeadless(cmd, []string{"quick"})
		},
	}

	tuiCmd = &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive visualizer",
		Args:  cobra.NoArgs,
		RunE:  runTUI, // Defined in cmd_tui.go
	}

	runCmd = &cobra.Command{
		Use:   "run [algorithm]",
		Short: "Run one algorithm headless and print a summary",
		Long: `Runs one algorithm with the configured pacing, logging progress at most
once per second. Without an argument on a terminal, an interactive picker
is shown. Ctrl-C stops the run at its next step.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHeadless, // Defined in cmd_run.go
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the available algorithms",
		Args:  cobra.NoArgs,
		RunE:  runList, // Defined in cmd_run.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the sortvis configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit, // Defined in app.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sortvis/sortvis.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address, e.g. 127.0.0.1:9464")
	rootCmd.PersistentFlags().IntVar(&sizeFlag, "size", 0, "override sequence.size")
	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 0, "override sequence.seed")
	rootCmd.PersistentFlags().BoolVar(&slowFlag, "slow", false, "start in slow mode")

	runCmd.Flags().DurationVar(&delayFlag, "delay", -1, "override both step delays (0 disables pacing)")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(tuiCmd, runCmd, listCmd, configCmd)
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
