// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package jj provides typed access to the jj CLI and to the on-disk
// markers jj leaves in a workspace.
//
// All commands target a specific workspace via the --repository flag,
// which is injected by every [Repository] method, and also run with
// that workspace as their working directory: some jj subcommands
// ("workspace rename", "workspace update-stale") act on the workspace
// they are run from rather than on a named one.
//
// The argument builders (WorkspaceAdd, WorkspaceForget, ...) return
// argument vectors only. Execution goes through lib/pipeline so that
// no two invocations against one repository ever overlap.
//
// [Discover] locates the workspace enclosing a directory. When the
// directory is a scooped project root (it holds workspaces but is not
// one itself) Discover attaches to the workspace in the conventional
// default subdirectory and reports the recovery.
package jj
