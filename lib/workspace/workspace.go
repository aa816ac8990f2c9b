// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Layout classifies how a repository's workspaces sit on disk.
type Layout string

const (
	// Unscooped is a single workspace whose directory is the project
	// root.
	Unscooped Layout = "unscooped"

	// Scooped is two or more workspaces, each at <root>/<name>.
	Scooped Layout = "scooped"

	// Foreign is any other arrangement. It was not produced by this
	// tool and is left alone.
	Foreign Layout = "foreign"
)

// Workspace is one entry of a snapshot.
type Workspace struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDefault bool   `json:"is_default"`
	IsScooped bool   `json:"is_scooped"`
}

// Snapshot is the registry's view at one point in time. Workspaces are
// in listing order.
type Snapshot struct {
	Workspaces  []Workspace `json:"workspaces"`
	ProjectRoot string      `json:"project_root"`
	Layout      Layout      `json:"layout"`
}

// Lookup returns the workspace called name.
func (s Snapshot) Lookup(name string) (Workspace, bool) {
	for _, workspace := range s.Workspaces {
		if workspace.Name == name {
			return workspace, true
		}
	}
	return Workspace{}, false
}

// Names returns the workspace names in listing order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Workspaces))
	for index, workspace := range s.Workspaces {
		names[index] = workspace.Name
	}
	return names
}

// Containing returns the workspace whose directory is dir or an
// ancestor of dir.
func (s Snapshot) Containing(dir string) (Workspace, bool) {
	dir = filepath.Clean(dir)
	for _, workspace := range s.Workspaces {
		if dir == workspace.Path || strings.HasPrefix(dir, workspace.Path+string(filepath.Separator)) {
			return workspace, true
		}
	}
	return Workspace{}, false
}

// Entry is one parsed line of a workspace listing.
type Entry struct {
	Name string
	Path string
}

// errUnparseable is wrapped into ErrRegistryUnavailable by the
// registry.
var errUnparseable = errors.New("unparseable workspace listing")

// ParseList parses listing output. Each non-blank line is either
// "name<TAB>path" or "name: path"; paths must be absolute and names
// unique.
func ParseList(text string) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)
	for number, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, path, ok := strings.Cut(line, "\t")
		if !ok {
			name, path, ok = strings.Cut(line, ": ")
		}
		name = strings.TrimSpace(name)
		path = strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("%w: line %d: %q", errUnparseable, number+1, line)
		}
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("%w: line %d: workspace %q has relative path %q", errUnparseable, number+1, name, path)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: workspace %q listed twice", errUnparseable, name)
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, Path: filepath.Clean(path)})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no workspaces listed", errUnparseable)
	}
	return entries, nil
}

// Derive builds a snapshot from a parsed listing. defaultName marks
// the default workspace.
func Derive(entries []Entry, defaultName string) Snapshot {
	snapshot := Snapshot{Workspaces: make([]Workspace, len(entries))}
	for index, entry := range entries {
		snapshot.Workspaces[index] = Workspace{
			Name:      entry.Name,
			Path:      entry.Path,
			IsDefault: entry.Name == defaultName,
		}
	}

	switch {
	case len(entries) == 1:
		snapshot.Layout = Unscooped
		snapshot.ProjectRoot = entries[0].Path
	case scoopedUnder(entries) != "":
		snapshot.Layout = Scooped
		snapshot.ProjectRoot = scoopedUnder(entries)
		for index := range snapshot.Workspaces {
			snapshot.Workspaces[index].IsScooped = true
		}
	default:
		snapshot.Layout = Foreign
		if workspace, ok := snapshot.Lookup(defaultName); ok {
			snapshot.ProjectRoot = filepath.Dir(workspace.Path)
		}
	}
	return snapshot
}

// scoopedUnder returns the common root when every entry is at
// <root>/<name>, or "" otherwise.
func scoopedUnder(entries []Entry) string {
	root := filepath.Dir(entries[0].Path)
	for _, entry := range entries {
		if filepath.Dir(entry.Path) != root || filepath.Base(entry.Path) != entry.Name {
			return ""
		}
	}
	return root
}
