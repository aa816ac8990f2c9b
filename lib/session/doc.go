// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package session wires the command pipeline, the workspace registry,
// the directory mover, and the topology planner into one attached
// front-end session. Both the command-line tool and the workspace
// panel open a session and drive it through the same methods.
//
// A session is attached to one workspace directory. [Open] discovers it
// from a starting directory, recovering from a scooped project root by
// attaching to one of its workspace subdirectories. When a plan moves
// the attached workspace, the session follows it.
package session
