// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace implements the "dagfront workspace" command group:
// listing and checking workspaces, and the add, forget, and rename
// topology changes with an optional --dry-run preview. Every command
// opens its own session, runs, and closes it again.
package workspace
