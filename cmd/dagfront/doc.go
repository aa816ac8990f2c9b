// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// dagfront is a terminal front-end for the workspaces of a jj
// repository.
//
// Run without a subcommand it opens the interactive workspace panel.
// The "workspace" subcommands perform the same topology changes
// non-interactively:
//
//	dagfront workspace list [--json]
//	dagfront workspace add NAME [--dry-run]
//	dagfront workspace forget NAME [--dry-run]
//	dagfront workspace rename FROM TO [--dry-run]
//	dagfront workspace check
//	dagfront workspace update-stale
//	dagfront workspace root
package main
