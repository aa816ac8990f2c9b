// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package opstore reads and patches the workspace store that jj keeps
// alongside the repository (by default <repo>/workspace_store/index).
//
// The store is a protobuf message whose repeated field 1 holds one
// record per workspace; each record carries the workspace name (field
// 1) and its on-disk path (field 2). The package never decodes into
// generated types. It walks the wire format with protowire, locates a
// record's exact byte span, and splices in a replacement, so every
// other record and every field this package does not understand stays
// byte-for-byte identical.
//
// Writes are atomic: the new content goes to a uniquely named temporary
// file in the store's directory, is fsynced and re-read for
// verification, and is renamed over the live file only if the live
// file has not changed since it was read. A concurrent writer is
// reported as [ErrStoreChanged] and nothing is written.
//
// The store is jj's own file. The package adds nothing to it and keeps
// no side files of its own.
package opstore
