// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for dagfront.
//
// The central type is [Command], a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// The tree is assembled in cmd/dagfront and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// and help output with examples.
//
// When a user types an unknown subcommand or flag, Execute suggests the
// closest known name by Levenshtein edit distance (at most 3).
//
// Errors returned by commands are classified with [Classify] into a
// [ToolError] category derived from the engine's sentinel errors, so
// scripts can tell bad input from conflicts and transient failures.
package cli
