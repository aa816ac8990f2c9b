// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspaceui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dagfront/dagfront/lib/workspace"
)

// Theme defines the color palette of the panel. All colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Markers next to workspace names.
	DefaultMarker lipgloss.Color
	CurrentMarker lipgloss.Color

	// Layout badge colors.
	LayoutUnscooped lipgloss.Color
	LayoutScooped   lipgloss.Color
	LayoutForeign   lipgloss.Color

	// Status bar severities.
	WarnText  lipgloss.Color
	ErrorText lipgloss.Color

	// Transcript lines.
	CommandText lipgloss.Color
}

// LayoutColor returns the badge color for a layout.
func (theme Theme) LayoutColor(layout workspace.Layout) lipgloss.Color {
	switch layout {
	case workspace.Unscooped:
		return theme.LayoutUnscooped
	case workspace.Scooped:
		return theme.LayoutScooped
	case workspace.Foreign:
		return theme.LayoutForeign
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	DefaultMarker: lipgloss.Color("75"),  // blue
	CurrentMarker: lipgloss.Color("114"), // green

	LayoutUnscooped: lipgloss.Color("114"),
	LayoutScooped:   lipgloss.Color("141"), // light purple
	LayoutForeign:   lipgloss.Color("208"), // orange

	WarnText:  lipgloss.Color("220"),
	ErrorText: lipgloss.Color("196"),

	CommandText: lipgloss.Color("75"),
}
