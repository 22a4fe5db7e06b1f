// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#00C8FF"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

const barGlyph = "█"

// column is one rendered bar.
type column struct {
	value     int
	highlight bool
}

// columns maps values onto at most width columns.
//
// When there are more values than columns, each column covers a contiguous
// index range, shows the largest value in it and is highlighted if the range
// contains a highlighted index.
func columns(values []int, hiA, hiB, width int) []column {
	n := len(values)
	if n == 0 || width <= 0 {
		return nil
	}
	if n <= width {
		out := make([]column, n)
		for i, v := range values {
			out[i] = column{value: v, highlight: i == hiA || i == hiB}
		}
		return out
	}

	out := make([]column, width)
	for c := range out {
		lo := c * n / width
		hi := (c + 1) * n / width
		col := column{value: values[lo]}
		for i := lo; i < hi; i++ {
			col.value = max(col.value, values[i])
			if i == hiA || i == hiB {
				col.highlight = true
			}
		}
		out[c] = col
	}
	return out
}

// renderBars draws values as vertical bars, height rows tall, scaled to the
// largest value. Highlighted bars use the highlight color.
func renderBars(values []int, hiA, hiB, width, height int) string {
	cols := columns(values, hiA, hiB, width)
	if len(cols) == 0 || height <= 0 {
		return strings.Repeat("\n", max(height-1, 0))
	}

	top := 1
	for _, c := range cols {
		top = max(top, c.value)
	}
	heights := make([]int, len(cols))
	for i, c := range cols {
		heights[i] = c.value * height / top
		if c.value > 0 && heights[i] == 0 {
			heights[i] = 1
		}
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		var run strings.Builder
		runHighlight := false
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runHighlight {
				b.WriteString(highlightStyle.Render(run.String()))
			} else {
				b.WriteString(barStyle.Render(run.String()))
			}
			run.Reset()
		}

		for i, c := range cols {
			glyph := " "
			if heights[i] >= row {
				glyph = barGlyph
			}
			if c.highlight != runHighlight {
				flush()
				runHighlight = c.highlight
			}
			run.WriteString(glyph)
		}
		flush()
		if row > 1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
