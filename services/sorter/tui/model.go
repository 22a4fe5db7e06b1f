// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui renders sorting runs in the terminal.
//
// # Description
//
// Model is a bubbletea observer of a coordinator.Controller. It polls a
// Snapshot once per frame, draws the sequence as bars, and turns key presses
// into control calls. It never touches the sequence directly.
//
// # Thread Safety
//
// Model is used from the bubbletea event loop only. Reset runs as a tea.Cmd
// because it waits for the worker to exit.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/sortvis/services/sorter/algorithms"
	"github.com/AleutianAI/sortvis/services/sorter/coordinator"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultFrameInterval is the polling period for snapshots.
const DefaultFrameInterval = 16 * time.Millisecond

// chromeHeight is the number of rows used by everything except the bars.
const chromeHeight = 7

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	legendStyle = lipgloss.NewStyle().Faint(true)
)

// =============================================================================
// Messages
// =============================================================================

// frameMsg asks the model to refresh its snapshot.
type frameMsg struct{}

// resetDoneMsg reports that a Reset command returned.
type resetDoneMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model for the visualizer.
type Model struct {
	ctrl     coordinator.Controller
	algs     []algorithms.Algorithm
	keys     keyMap
	help     help.Model
	interval time.Duration

	snap   coordinator.Snapshot
	notice string

	width    int
	height   int
	quitting bool
}

// New creates a Model over ctrl.
//
// # Inputs
//
//   - ctrl: The coordinator to observe and drive.
//   - algs: Algorithms bound to keys 1..8, in order. Extra entries are ignored.
//   - interval: Frame interval. Zero uses DefaultFrameInterval.
//
// # Outputs
//
//   - Model: Ready-to-use model for tea.NewProgram.
func New(ctrl coordinator.Controller, algs []algorithms.Algorithm, interval time.Duration) Model {
	if len(algs) > 8 {
		algs = algs[:8]
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return Model{
		ctrl:     ctrl,
		algs:     algs,
		keys:     defaultKeyMap(),
		help:     help.New(),
		interval: interval,
		snap:     ctrl.Snapshot(),
		width:    80,
		height:   24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return frameMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case frameMsg:
		m.snap = m.ctrl.Snapshot()
		return m, m.tick()

	case resetDoneMsg:
		m.snap = m.ctrl.Snapshot()
		m.notice = ""

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Start):
		idx := int(msg.String()[0] - '1')
		if idx >= len(m.algs) {
			return m, nil
		}
		m.notice = noticeFor(m.ctrl.Start(m.algs[idx].Name))

	case key.Matches(msg, m.keys.Pause):
		_, err := m.ctrl.TogglePause()
		m.notice = noticeFor(err)

	case key.Matches(msg, m.keys.Stop):
		m.ctrl.RequestStop()
		m.notice = ""

	case key.Matches(msg, m.keys.Reset):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.Reset()
			return resetDoneMsg{}
		}

	case key.Matches(msg, m.keys.Speed):
		m.ctrl.SetFastMode(!m.snap.FastMode)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.snap = m.ctrl.Snapshot()
	return m, nil
}

// noticeFor turns a control error into a one-line notice.
func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, coordinator.ErrRunActive):
		return "Stopping current sort; press again to start."
	case errors.Is(err, coordinator.ErrNotRunning):
		return "Nothing to pause."
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sorting Visualizer"))
	b.WriteString("\n")

	barHeight := max(m.height-chromeHeight, 3)
	b.WriteString(renderBars(m.snap.Values, m.snap.HighlightA, m.snap.HighlightB, max(m.width, 1), barHeight))
	b.WriteString("\n")

	b.WriteString(statusStyle.Render("Status: " + m.snap.Status))
	b.WriteString("\n")
	b.WriteString(infoLine(m.snap))
	b.WriteString("\n")
	b.WriteString(legendStyle.Render(m.legend()))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// infoLine formats complexity, comparisons and the pacing state.
func infoLine(s coordinator.Snapshot) string {
	complexity := s.Complexity
	if complexity == "" {
		complexity = "-"
	}
	speed := "slow"
	if s.FastMode {
		speed = "fast"
	}
	line := fmt.Sprintf("Time: %s | Comparisons: %d | Speed: %s", complexity, s.Comparisons, speed)
	if s.Paused {
		line += " | Paused"
	}
	return line
}

func (m Model) legend() string {
	parts := make([]string, len(m.algs))
	for i, a := range m.algs {
		parts[i] = fmt.Sprintf("%d %s", i+1, strings.TrimSuffix(a.Label, " Sort"))
	}
	return strings.Join(parts, "  ")
}
