// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package jj

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MarkerDir is the per-workspace metadata directory jj creates at the
// root of every workspace.
const MarkerDir = ".jj"

// ErrNotWorkspace is returned by [Discover] when neither the directory,
// any of its ancestors, nor any of its immediate children is a jj
// workspace.
var ErrNotWorkspace = errors.New("not inside a jj workspace")

// Location is the result of [Discover].
type Location struct {
	// Root is the absolute workspace root.
	Root string

	// Recovered is true when Root was found among the immediate
	// subdirectories of the starting directory rather than at or above
	// it: the starting directory is a scooped project root.
	Recovered bool
}

// Discover finds the jj workspace for dir. It walks up from dir looking
// for a .jj directory. If none is found, it looks one level down,
// preferring the subdirectory named preferred, then the remaining
// candidates in lexical order.
func Discover(dir, preferred string) (Location, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return Location{}, fmt.Errorf("resolving %s: %w", dir, err)
	}

	for current := absolute; ; current = filepath.Dir(current) {
		if IsWorkspace(current) {
			return Location{Root: current}, nil
		}
		if filepath.Dir(current) == current {
			break
		}
	}

	entries, err := os.ReadDir(absolute)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %s", ErrNotWorkspace, absolute)
	}
	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(absolute, entry.Name())
		if IsWorkspace(path) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrNotWorkspace, absolute)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if (candidates[i] == preferred) != (candidates[j] == preferred) {
			return candidates[i] == preferred
		}
		return candidates[i] < candidates[j]
	})
	return Location{Root: filepath.Join(absolute, candidates[0]), Recovered: true}, nil
}

// IsWorkspace reports whether dir is the root of a jj workspace.
func IsWorkspace(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerDir))
	return err == nil && info.IsDir()
}

// RepoDir returns the repository directory used by the workspace at
// root. For the hosting workspace that is <root>/.jj/repo; for other
// workspaces .jj/repo is a file holding the path of the hosting
// workspace's repository, relative to the .jj directory or absolute.
func RepoDir(root string) (string, error) {
	repoPath := filepath.Join(root, MarkerDir, "repo")
	info, err := os.Lstat(repoPath)
	if err != nil {
		return "", fmt.Errorf("locating repository of workspace %s: %w", root, err)
	}
	if info.IsDir() {
		return repoPath, nil
	}

	data, err := os.ReadFile(repoPath)
	if err != nil {
		return "", fmt.Errorf("reading repository pointer %s: %w", repoPath, err)
	}
	target := strings.TrimSpace(string(data))
	if target == "" {
		return "", fmt.Errorf("repository pointer %s is empty", repoPath)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, MarkerDir, target)
	}
	return filepath.Clean(target), nil
}
