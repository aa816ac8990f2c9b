// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package dirmove

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Snapshot summarizes a subtree: the number of regular files and
// symlinks, and the total size of the regular files.
type Snapshot struct {
	Files int64
	Bytes int64
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%d files, %d bytes", s.Files, s.Bytes)
}

func (s Snapshot) add(other Snapshot) Snapshot {
	return Snapshot{Files: s.Files + other.Files, Bytes: s.Bytes + other.Bytes}
}

// TakeSnapshot walks root without following symlinks. root may be a
// file.
func TakeSnapshot(root string) (Snapshot, error) {
	var snapshot Snapshot
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				return err
			}
			snapshot.Files++
			snapshot.Bytes += info.Size()
		case entry.Type()&fs.ModeSymlink != 0:
			snapshot.Files++
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot of %s: %w", root, err)
	}
	return snapshot, nil
}

// TakeSnapshotOf sums the snapshots of the named children of root.
func TakeSnapshotOf(root string, entries []string) (Snapshot, error) {
	var total Snapshot
	for _, name := range entries {
		snapshot, err := TakeSnapshot(filepath.Join(root, name))
		if err != nil {
			return Snapshot{}, err
		}
		total = total.add(snapshot)
	}
	return total, nil
}
