// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace is the authoritative in-memory view of a
// repository's workspaces.
//
// A [Registry] holds the last [Snapshot] obtained from "jj workspace
// list". The snapshot is only ever replaced as a whole, by a listing
// that parsed cleanly; a failed refresh leaves the previous snapshot in
// place and reports [ErrRegistryUnavailable]. Nothing in this package
// writes to disk.
//
// [Derive] classifies a listing into a [Layout]: a single workspace is
// unscooped and is its own project root; several workspaces that all
// live at <root>/<name> are scooped under <root>; anything else is
// foreign and topology operations refuse to touch it.
//
// [Check] cross-checks a snapshot against the workspace store and the
// filesystem and reports disagreements as [Mismatch] values. It never
// repairs anything.
package workspace
