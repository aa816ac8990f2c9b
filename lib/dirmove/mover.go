// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package dirmove

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrPathCollision means a destination already exists and is not
	// an empty directory.
	ErrPathCollision = errors.New("destination already exists")

	// ErrMoveVerificationFailed means the destination does not hold
	// what the source held before the move.
	ErrMoveVerificationFailed = errors.New("move verification failed")
)

// Result describes a completed (or partially completed) move.
type Result struct {
	From string
	To   string

	// Entries lists the children moved by MoveContents or MoveEntries,
	// in the order they were moved. On error it lists only those that
	// were moved before the failure.
	Entries []string

	// Snapshot is the source snapshot the destination was verified
	// against.
	Snapshot Snapshot

	// Copied is set when at least one entry crossed a filesystem
	// boundary and was copied rather than renamed.
	Copied bool
}

// Options configures a Mover.
type Options struct {
	// Logger receives one record per completed move. Nil discards.
	Logger *slog.Logger
}

// Mover performs verified directory relocations.
type Mover struct {
	logger *slog.Logger

	// rename, afterCopy and afterTransfer are replaced by tests to
	// force the copy fallback and to tamper with a destination before
	// verification.
	rename        func(from, to string) error
	afterCopy     func(to string)
	afterTransfer func(from, to string)
}

// New creates a Mover.
func New(options Options) *Mover {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mover{logger: logger, rename: renameNoReplace}
}

// CheckDestination returns nil when path does not exist or is an empty
// directory, and an error wrapping ErrPathCollision otherwise.
func CheckDestination(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathCollision, path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s is not empty", ErrPathCollision, path)
	}
	return nil
}

// Move relocates the subtree at from to to. to must not exist or must
// be an empty directory; missing parents of to are created.
func (m *Mover) Move(from, to string) (Result, error) {
	result := Result{From: from, To: to}
	if _, err := os.Lstat(from); err != nil {
		return result, fmt.Errorf("moving %s: %w", from, err)
	}
	if within(to, from) {
		return result, fmt.Errorf("moving %s into its own subtree %s", from, to)
	}
	if err := CheckDestination(to); err != nil {
		return result, err
	}

	before, err := TakeSnapshot(from)
	if err != nil {
		return result, err
	}
	result.Snapshot = before

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return result, fmt.Errorf("creating parent of %s: %w", to, err)
	}
	// An empty destination directory is replaced; the rename itself
	// refuses to overwrite anything.
	if info, err := os.Lstat(to); err == nil && info.IsDir() {
		if err := os.Remove(to); err != nil {
			return result, fmt.Errorf("removing empty destination %s: %w", to, err)
		}
		defer func() {
			if _, err := os.Lstat(from); err != nil {
				return
			}
			if err := os.Mkdir(to, info.Mode().Perm()); err != nil && !errors.Is(err, os.ErrExist) {
				m.logger.Warn("recreating empty destination failed", "path", to, "error", err)
			}
		}()
	}

	copied, err := m.transfer(from, to)
	result.Copied = copied
	if err != nil {
		return result, err
	}

	if err := m.verify(to, nil, before); err != nil {
		return result, err
	}
	m.logger.Info("moved directory", "from", from, "to", to, "files", before.Files, "bytes", before.Bytes, "copied", copied)
	return result, nil
}

// MoveContents moves every immediate child of from into to, except
// the names in exclude and, when to lies inside from, the child that
// contains to. to is created when missing. When to is the parent of
// from, from is removed once empty; a child with the same name as from
// is handled.
func (m *Mover) MoveContents(from, to string, exclude []string) (Result, error) {
	children, err := os.ReadDir(from)
	if err != nil {
		return Result{From: from, To: to}, fmt.Errorf("listing %s: %w", from, err)
	}
	skip := slices.Clone(exclude)
	if within(to, from) {
		relative, _ := filepath.Rel(from, to)
		skip = append(skip, firstElement(relative))
	}

	var entries []string
	for _, child := range children {
		if !slices.Contains(skip, child.Name()) {
			entries = append(entries, child.Name())
		}
	}
	return m.MoveEntries(from, to, entries)
}

// MoveEntries moves the named children of from into to. It is the
// exact inverse of a MoveContents call when given that call's
// Result.Entries with from and to swapped.
func (m *Mover) MoveEntries(from, to string, entries []string) (Result, error) {
	result := Result{From: from, To: to}

	info, err := os.Stat(from)
	if err != nil {
		return result, fmt.Errorf("moving contents of %s: %w", from, err)
	}
	for _, name := range entries {
		if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
			return result, fmt.Errorf("moving contents of %s: invalid entry name %q", from, name)
		}
		if _, err := os.Lstat(filepath.Join(from, name)); err != nil {
			return result, fmt.Errorf("moving contents of %s: %w", from, err)
		}
	}

	before, err := TakeSnapshotOf(from, entries)
	if err != nil {
		return result, err
	}
	result.Snapshot = before

	source := from
	destination := to
	finalize := func() error { return nil }

	switch {
	case filepath.Dir(from) == to && slices.Contains(entries, filepath.Base(from)):
		// from holds a child with its own name, which would land on
		// from itself. Step from aside first.
		staged := uniqueSibling(from)
		if err := os.Rename(from, staged); err != nil {
			return result, fmt.Errorf("staging %s: %w", from, err)
		}
		source = staged
	case filepath.Dir(to) == from && slices.Contains(entries, filepath.Base(to)):
		// The reverse: to is currently occupied by one of the entries
		// being moved. Collect into a hidden sibling, then rename it
		// into place once to is free.
		staged := uniqueSibling(to)
		if err := os.Mkdir(staged, info.Mode().Perm()); err != nil {
			return result, fmt.Errorf("staging %s: %w", to, err)
		}
		destination = staged
		finalize = func() error {
			if err := m.rename(staged, to); err != nil {
				return fmt.Errorf("renaming %s into place: %w", to, err)
			}
			return nil
		}
	default:
		if err := os.MkdirAll(to, info.Mode().Perm()); err != nil {
			return result, fmt.Errorf("creating %s: %w", to, err)
		}
	}

	for _, name := range entries {
		if err := CheckDestination(filepath.Join(destination, name)); err != nil {
			return result, err
		}
		child := filepath.Join(destination, name)
		if info, err := os.Lstat(child); err == nil && info.IsDir() {
			if err := os.Remove(child); err != nil {
				m.logger.Warn("removing empty destination failed", "path", child, "error", err)
			}
		}
	}

	for _, name := range entries {
		copied, err := m.transfer(filepath.Join(source, name), filepath.Join(destination, name))
		result.Copied = result.Copied || copied
		if err != nil {
			return result, err
		}
		result.Entries = append(result.Entries, name)
	}
	if err := finalize(); err != nil {
		return result, err
	}

	// Leaving the parent: the emptied source goes away.
	if filepath.Dir(from) == to {
		remaining, err := os.ReadDir(source)
		if err != nil {
			return result, fmt.Errorf("listing %s: %w", source, err)
		}
		switch {
		case len(remaining) == 0:
			if err := os.Remove(source); err != nil {
				return result, fmt.Errorf("removing emptied %s: %w", from, err)
			}
		case source != from:
			return result, fmt.Errorf("excluded entries of %s were left in %s", from, source)
		}
	}

	if err := m.verify(to, entries, before); err != nil {
		return result, err
	}
	m.logger.Info("moved directory contents",
		"from", from,
		"to", to,
		"entries", len(entries),
		"files", before.Files,
		"bytes", before.Bytes,
		"copied", result.Copied,
	)
	return result, nil
}

// transfer renames from to to, falling back to copy-verify-delete when
// they are on different filesystems. A failed copy removes what it
// wrote, and the source is deleted only after the copy matches it.
func (m *Mover) transfer(from, to string) (bool, error) {
	err := m.rename(from, to)
	copied := false
	switch {
	case err == nil:
	case isCrossDevice(err):
		if err := m.copyVerified(from, to); err != nil {
			m.discard(to)
			return true, err
		}
		if err := os.RemoveAll(from); err != nil {
			return true, fmt.Errorf("removing %s after copy: %w", from, err)
		}
		copied = true
	case isExist(err):
		return false, fmt.Errorf("%w: %s", ErrPathCollision, to)
	default:
		return false, fmt.Errorf("moving %s to %s: %w", from, to, err)
	}
	if m.afterTransfer != nil {
		m.afterTransfer(from, to)
	}
	return copied, nil
}

func (m *Mover) copyVerified(from, to string) error {
	want, err := TakeSnapshot(from)
	if err != nil {
		return err
	}
	if err := copyTree(from, to); err != nil {
		return fmt.Errorf("copying %s to %s: %w", from, to, err)
	}
	if m.afterCopy != nil {
		m.afterCopy(to)
	}
	return m.verify(to, nil, want)
}

// discard removes a partial copy.
func (m *Mover) discard(path string) {
	if err := os.RemoveAll(path); err != nil {
		m.logger.Warn("removing partial copy failed", "path", path, "error", err)
	}
}

// verify compares the destination against the pre-move snapshot. A
// nil entries list means the whole subtree at root.
func (m *Mover) verify(root string, entries []string, want Snapshot) error {
	var got Snapshot
	var err error
	if entries == nil {
		got, err = TakeSnapshot(root)
	} else {
		got, err = TakeSnapshotOf(root, entries)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMoveVerificationFailed, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s holds %v, source held %v", ErrMoveVerificationFailed, root, got, want)
	}
	return nil
}

// renameChecked refuses to replace an existing destination, then
// renames. It is not atomic with respect to other writers.
func renameChecked(from, to string) error {
	if _, err := os.Lstat(to); err == nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrExist}
	}
	return os.Rename(from, to)
}

func uniqueSibling(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"-"+uuid.NewString()[:8])
}

// within reports whether path lies strictly inside root.
func within(path, root string) bool {
	relative, err := filepath.Rel(root, path)
	if err != nil || relative == "." || relative == ".." {
		return false
	}
	return !filepath.IsAbs(relative) && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}

func firstElement(relative string) string {
	first, _, _ := strings.Cut(relative, string(filepath.Separator))
	return first
}
