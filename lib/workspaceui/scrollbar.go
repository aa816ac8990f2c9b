// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspaceui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderScrollbar returns height one-column cells for a pane showing
// visible of total lines starting at offset. When everything fits the
// thumb fills the track.
func renderScrollbar(theme Theme, height, total, visible, offset int) []string {
	if height <= 0 {
		return nil
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(theme.CommandText).Render("┃")

	cells := make([]string, height)
	if total <= visible {
		for index := range cells {
			cells[index] = thumb
		}
		return cells
	}

	thumbSize := max(height*visible/total, 1)
	thumbOffset := 0
	if scrollable, travel := total-visible, height-thumbSize; travel > 0 {
		thumbOffset = min(offset*travel/scrollable, travel)
	}
	for index := range cells {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			cells[index] = thumb
		} else {
			cells[index] = track
		}
	}
	return cells
}
