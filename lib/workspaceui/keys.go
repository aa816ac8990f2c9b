// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspaceui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the workspace panel.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Topology changes.
	Add    key.Binding
	Rename key.Binding
	Forget key.Binding

	UpdateStale key.Binding
	Refresh     key.Binding

	// Transcript pane scrolling, half a pane per press.
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// Prompt and confirmation handling.
	Submit  key.Binding
	Confirm key.Binding
	Cancel  key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set: vim-style j/k
// alongside the arrow keys, one letter per action.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename"),
	),
	Forget: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "forget"),
	),
	UpdateStale: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "update stale"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "refresh"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("PgUp", "scroll output"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("PgDn", "scroll output"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "submit"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/Esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
