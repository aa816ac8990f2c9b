// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology turns workspace intents into plans and executes
// them with compensation.
//
// An [Intent] is one of [AddWorkspace], [ForgetWorkspace], or
// [RenameWorkspace]. [Build] validates it against a registry snapshot
// and produces a [Plan]: an ordered list of [Step] values, each an
// [InvokeVCS], a [MoveDirectory], or a [PatchStoreRecord]. Building is
// pure; nothing is touched until [Planner.Execute].
//
// The layout convention ("power workspace") is that a repository with
// one workspace keeps it directly in the project root, and a repository
// with several keeps every workspace, the original included, in
// <root>/<name>. Adding the second workspace scoops the original into
// its own subdirectory first; forgetting down to the original
// un-scoops it again. The scoop moves the children of the project root
// rather than the root itself, so the project root path never changes.
//
// Execute runs the whole plan as one exclusive section of the command
// pipeline, so no other jj invocation can interleave. It refreshes the
// registry, refuses to start when the workspace store disagrees with
// the listing ([ErrTopologyDrift]), checks every destination for
// collisions before the first mutation, and then runs the steps in
// order. Each completed step records its compensation: the reverse
// move, the previous raw store record, or the inverse jj command where
// one exists. When a step fails the compensations run in reverse and
// the failure is reported as a [*PlanError].
//
// The store path of a patch step is computed for the moment the step
// runs: when the hosting workspace is scooped, its .jj/repo (and the
// store inside it) moves with it.
package topology
