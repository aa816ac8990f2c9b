// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package jj

import (
	"context"
	"os/exec"
)

// Repository represents a jj workspace at a specific directory. All
// operations target this directory via "jj --repository <dir>".
type Repository struct {
	binary     string
	dir        string
	globalArgs []string
}

// NewRepository returns a Repository targeting the given workspace
// directory. globalArgs are inserted after the --repository flag on
// every invocation (e.g. --no-pager).
func NewRepository(binary, dir string, globalArgs []string) *Repository {
	return &Repository{binary: binary, dir: dir, globalArgs: globalArgs}
}

// Args returns the full argument vector for a jj invocation: the
// --repository flag, the global arguments, then args.
func (r *Repository) Args(args ...string) []string {
	full := make([]string, 0, 2+len(r.globalArgs)+len(args))
	full = append(full, "--repository", r.dir)
	full = append(full, r.globalArgs...)
	return append(full, args...)
}

// Command returns an *exec.Cmd for a jj command without running it.
// The working directory is the workspace directory. The caller gets
// full control over Stdin, Stdout, and Stderr before starting it.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	command := exec.CommandContext(ctx, r.binary, r.Args(args...)...)
	command.Dir = r.dir
	return command
}

// WorkspaceList returns the arguments for listing workspaces with the
// given template. The template must print name, tab, and root per line.
func WorkspaceList(template string) []string {
	return []string{"workspace", "list", "-T", template}
}

// WorkspaceAdd returns the arguments for creating workspace name at path.
func WorkspaceAdd(name, path string) []string {
	return []string{"workspace", "add", "--name", name, path}
}

// WorkspaceForget returns the arguments for forgetting the named
// workspaces. The directories are left untouched by jj.
func WorkspaceForget(names ...string) []string {
	return append([]string{"workspace", "forget"}, names...)
}

// WorkspaceRename returns the arguments for renaming the workspace the
// command runs in. jj has no way to rename a workspace by name; the
// invocation must target the workspace being renamed.
func WorkspaceRename(newName string) []string {
	return []string{"workspace", "rename", newName}
}

// WorkspaceUpdateStale returns the arguments for refreshing a stale
// working copy.
func WorkspaceUpdateStale() []string {
	return []string{"workspace", "update-stale"}
}

// WorkspaceRoot returns the arguments for printing the workspace root.
func WorkspaceRoot() []string {
	return []string{"workspace", "root"}
}
