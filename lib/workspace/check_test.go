// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dagfront/dagfront/lib/opstore"
)

type recordList []opstore.Record

func (r recordList) Records() ([]opstore.Record, error) { return r, nil }

type brokenStore struct{}

func (brokenStore) Records() ([]opstore.Record, error) { return nil, opstore.ErrStoreCorrupt }

func TestCheck(t *testing.T) {
	snapshot := Derive([]Entry{
		{"default", "/proj/default"},
		{"feature", "/proj/feature"},
		{"docs", "/proj/docs"},
	}, "default")
	records := recordList{
		{Name: "default", Path: "/proj/default"},
		{Name: "feature", Path: "/proj"},
		{Name: "stale", Path: "/proj/stale"},
	}
	present := map[string]bool{"/proj/default": true, "/proj/feature": true}

	mismatches, err := Check(snapshot, records, func(path string) bool { return present[path] })
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	var got []MismatchKind
	for _, mismatch := range mismatches {
		got = append(got, mismatch.Kind)
	}
	want := []MismatchKind{RecordPath, MissingRecord, MissingDirectory, OrphanRecord}
	if !slices.Equal(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	if mismatches[0].Workspace != "feature" || mismatches[0].Recorded != "/proj" {
		t.Errorf("record path mismatch = %+v", mismatches[0])
	}
	if mismatches[3].Workspace != "stale" {
		t.Errorf("orphan = %+v", mismatches[3])
	}
	for _, mismatch := range mismatches {
		if mismatch.String() == "" {
			t.Errorf("empty description for %+v", mismatch)
		}
	}
}

func TestCheck_Consistent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "proj")
	if err := os.MkdirAll(filepath.Join(path, ".jj"), 0755); err != nil {
		t.Fatal(err)
	}
	snapshot := Derive([]Entry{{"default", path}}, "default")

	mismatches, err := Check(snapshot, recordList{{Name: "default", Path: path}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 0 {
		t.Errorf("mismatches = %v, want none", mismatches)
	}
}

func TestCheck_StoreError(t *testing.T) {
	snapshot := Derive([]Entry{{"default", "/proj"}}, "default")
	if _, err := Check(snapshot, brokenStore{}, nil); !errors.Is(err, opstore.ErrStoreCorrupt) {
		t.Fatalf("Check error = %v, want ErrStoreCorrupt", err)
	}
}
