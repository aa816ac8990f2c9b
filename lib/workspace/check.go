// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/opstore"
)

// MismatchKind names one way the three views of a workspace can
// disagree.
type MismatchKind string

const (
	// MissingRecord: the listing has a workspace the store has no
	// record for.
	MissingRecord MismatchKind = "missing_record"

	// RecordPath: the store records a different path than the listing.
	RecordPath MismatchKind = "record_path"

	// MissingDirectory: the listed path holds no workspace marker.
	MissingDirectory MismatchKind = "missing_directory"

	// OrphanRecord: the store has a record for a workspace the listing
	// does not show.
	OrphanRecord MismatchKind = "orphan_record"
)

// Mismatch is one disagreement found by Check.
type Mismatch struct {
	Workspace string       `json:"workspace"`
	Kind      MismatchKind `json:"kind"`
	Listed    string       `json:"listed,omitempty"`
	Recorded  string       `json:"recorded,omitempty"`
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MissingRecord:
		return fmt.Sprintf("workspace %q has no store record", m.Workspace)
	case RecordPath:
		return fmt.Sprintf("workspace %q is at %s but the store records %s", m.Workspace, m.Listed, m.Recorded)
	case MissingDirectory:
		return fmt.Sprintf("workspace %q: no workspace found at %s", m.Workspace, m.Listed)
	case OrphanRecord:
		return fmt.Sprintf("store records workspace %q at %s but jj does not list it", m.Workspace, m.Recorded)
	}
	return fmt.Sprintf("workspace %q: %s", m.Workspace, m.Kind)
}

// RecordSource provides the store records Check compares against.
// *opstore.Store satisfies it.
type RecordSource interface {
	Records() ([]opstore.Record, error)
}

// Probe reports whether path holds a workspace. Nil means
// [jj.IsWorkspace].
type Probe func(path string) bool

// Check compares every workspace in snapshot with its store record and
// with the filesystem. An unreadable store is an error; disagreements
// are returned as mismatches in listing order, orphan records last.
func Check(snapshot Snapshot, store RecordSource, probe Probe) ([]Mismatch, error) {
	if probe == nil {
		probe = jj.IsWorkspace
	}
	records, err := store.Records()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]opstore.Record, len(records))
	for _, record := range records {
		byName[record.Name] = record
	}

	var mismatches []Mismatch
	for _, workspace := range snapshot.Workspaces {
		record, ok := byName[workspace.Name]
		switch {
		case !ok:
			mismatches = append(mismatches, Mismatch{Workspace: workspace.Name, Kind: MissingRecord, Listed: workspace.Path})
		case filepath.Clean(record.Path) != workspace.Path:
			mismatches = append(mismatches, Mismatch{Workspace: workspace.Name, Kind: RecordPath, Listed: workspace.Path, Recorded: record.Path})
		}
		if !probe(workspace.Path) {
			mismatches = append(mismatches, Mismatch{Workspace: workspace.Name, Kind: MissingDirectory, Listed: workspace.Path})
		}
	}
	for _, record := range records {
		if _, listed := snapshot.Lookup(record.Name); !listed {
			mismatches = append(mismatches, Mismatch{Workspace: record.Name, Kind: OrphanRecord, Recorded: record.Path})
		}
	}
	return mismatches, nil
}
