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
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/sortvis/cmd/sortvis/config"
	"github.com/AleutianAI/sortvis/services/sorter/coordinator"
	"github.com/AleutianAI/sortvis/services/sorter/sequence"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testConfig = `sequence:
  size: 64
  max_value: 100
  seed: 7
pacing:
  fast_delay: 0s
  slow_delay: 0s
  fast_mode: true
logging:
  level: warn
  dir: ""
telemetry:
  trace_exporter: none
  metric_exporter: none
`

// withConfig points the global --config flag at a fresh file for one test.
func withConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sortvis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
	return path
}

func testCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd
}

func TestRunHeadless_CompletesAndPrintsSummary(t *testing.T) {
	withConfig(t, testConfig)

	var out bytes.Buffer
	require.NoError(t, runHeadless(testCommand(&out), []string{"merge"}))

	text := out.String()
	assert.Contains(t, text, "Algorithm: Merge Sort")
	assert.Contains(t, text, "Status: Done")
	assert.Contains(t, text, "Time: O(n log n) | Comparisons: ")
}

func TestRunHeadless_UnknownAlgorithm(t *testing.T) {
	withConfig(t, testConfig)

	err := runHeadless(testCommand(io.Discard), []string{"bogo"})
	require.ErrorIs(t, err, coordinator.ErrUnknownAlgorithm)
}

func TestNewApp_RejectsBadLogLevelFlag(t *testing.T) {
	withConfig(t, testConfig)
	logLevel = "loud"
	t.Cleanup(func() { logLevel = "" })

	_, err := newApp(context.Background(), testCommand(io.Discard), true)
	require.Error(t, err)
}

func TestApp_ApplyPacingKeepsManualSpeed(t *testing.T) {
	withConfig(t, testConfig)
	a, err := newApp(context.Background(), testCommand(io.Discard), true)
	require.NoError(t, err)
	defer a.Close()

	a.coord.SetFastMode(false)

	cfg := a.cfg
	cfg.Pacing.SlowDelay = 40 * time.Millisecond
	a.applyPacing(cfg)
	assert.False(t, a.coord.Snapshot().FastMode, "unchanged fast_mode must not override the toggle")

	cfg.Pacing.FastMode = false
	a.applyPacing(cfg)
	cfg.Pacing.FastMode = true
	a.applyPacing(cfg)
	assert.True(t, a.coord.Snapshot().FastMode)
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortvis.yaml")
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	var out bytes.Buffer
	require.NoError(t, runConfigInit(testCommand(&out), nil))
	assert.Contains(t, out.String(), path)

	err := runConfigInit(testCommand(io.Discard), nil)
	require.ErrorIs(t, err, config.ErrExists)
}

func TestRunList(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runList(testCommand(&out), nil))

	text := out.String()
	for _, want := range []string{"bubble", "Binary Insertion Sort", "counting", "O(n log n)"} {
		assert.Contains(t, text, want)
	}
}

func TestLogProgress_Throttled(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	feed := make(chan sequence.StepSnapshot, 100)
	for i := 1; i <= 100; i++ {
		feed <- sequence.StepSnapshot{Step: uint64(i)}
	}
	close(feed)

	logProgress(context.Background(), log, feed, rate.NewLimiter(rate.Every(time.Hour), 1))
	assert.Equal(t, 1, strings.Count(buf.String(), "msg=progress"))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	snap := coordinator.Snapshot{Label: "Quick Sort", Complexity: "O(n log n)"}
	snap.Status = "Stopped"
	snap.Comparisons = 17

	printSummary(&buf, snap, 1500*time.Millisecond)
	assert.Contains(t, buf.String(), "Status: Stopped")
	assert.Contains(t, buf.String(), "Time: O(n log n) | Comparisons: 17")
	assert.Contains(t, buf.String(), "Elapsed: 1.5s")
}
