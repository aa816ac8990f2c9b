// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirmove relocates workspace directories on disk with
// verification.
//
// [Mover.Move] relocates a whole subtree. [Mover.MoveContents] moves
// the immediate children of one directory into another, which is how a
// project root is scooped into its default/ subdirectory and un-scooped
// back out of it without the project root itself changing identity.
// [Mover.MoveEntries] moves a named set of children, and is how a
// contents move is compensated exactly.
//
// Within one filesystem a move is a rename that refuses to replace an
// existing entry. Across filesystems the mover copies, compares BLAKE3
// digests of every regular file, and only then deletes the source.
// Either way the file count and byte total of the destination must
// match the source snapshot taken before the move, or the move fails
// with [ErrMoveVerificationFailed]. The mover never rolls back on its
// own; the caller owns compensation.
package dirmove
