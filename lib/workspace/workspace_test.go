// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"slices"
	"testing"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Entry
		wantErr bool
	}{
		{
			name:  "tab separated",
			input: "default\t/proj/default\nfeature\t/proj/feature\n",
			want:  []Entry{{"default", "/proj/default"}, {"feature", "/proj/feature"}},
		},
		{
			name:  "colon separated",
			input: "default: /proj\n",
			want:  []Entry{{"default", "/proj"}},
		},
		{
			name:  "blank lines and trailing slash",
			input: "\n default\t/proj/ \n\n",
			want:  []Entry{{"default", "/proj"}},
		},
		{
			name:  "path with colon-space stays intact with tab separator",
			input: "odd\t/proj/a: b\n",
			want:  []Entry{{"odd", "/proj/a: b"}},
		},
		{name: "empty", input: "\n\n", wantErr: true},
		{name: "no separator", input: "default /proj\n", wantErr: true},
		{name: "relative path", input: "default\tproj\n", wantErr: true},
		{name: "duplicate", input: "a\t/a\na\t/b\n", wantErr: true},
		{name: "missing path", input: "a\t\n", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseList(test.input)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseList(%q) = %v, want error", test.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseList(%q): %v", test.input, err)
			}
			if !slices.Equal(got, test.want) {
				t.Errorf("ParseList(%q) = %v, want %v", test.input, got, test.want)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name        string
		entries     []Entry
		layout      Layout
		projectRoot string
		scooped     bool
	}{
		{
			name:        "single workspace",
			entries:     []Entry{{"default", "/proj"}},
			layout:      Unscooped,
			projectRoot: "/proj",
		},
		{
			name:        "single workspace already in a subdirectory",
			entries:     []Entry{{"default", "/proj/default"}},
			layout:      Unscooped,
			projectRoot: "/proj/default",
		},
		{
			name:        "scooped",
			entries:     []Entry{{"default", "/proj/default"}, {"feature", "/proj/feature"}},
			layout:      Scooped,
			projectRoot: "/proj",
			scooped:     true,
		},
		{
			name:        "sibling directories not named after workspaces",
			entries:     []Entry{{"default", "/proj"}, {"feature", "/proj-feature"}},
			layout:      Foreign,
			projectRoot: "/",
		},
		{
			name:        "nested secondary",
			entries:     []Entry{{"default", "/proj"}, {"feature", "/proj/feature"}},
			layout:      Foreign,
			projectRoot: "/",
		},
		{
			name:        "different parents",
			entries:     []Entry{{"default", "/a/default"}, {"feature", "/b/feature"}},
			layout:      Foreign,
			projectRoot: "/a",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snapshot := Derive(test.entries, "default")
			if snapshot.Layout != test.layout {
				t.Errorf("Layout = %s, want %s", snapshot.Layout, test.layout)
			}
			if snapshot.ProjectRoot != test.projectRoot {
				t.Errorf("ProjectRoot = %q, want %q", snapshot.ProjectRoot, test.projectRoot)
			}
			for _, workspace := range snapshot.Workspaces {
				if workspace.IsScooped != test.scooped {
					t.Errorf("%s IsScooped = %v, want %v", workspace.Name, workspace.IsScooped, test.scooped)
				}
				if workspace.IsDefault != (workspace.Name == "default") {
					t.Errorf("%s IsDefault = %v", workspace.Name, workspace.IsDefault)
				}
			}
		})
	}
}

func TestSnapshot_Containing(t *testing.T) {
	snapshot := Derive([]Entry{{"default", "/proj/default"}, {"feature", "/proj/feature"}}, "default")

	workspace, ok := snapshot.Containing("/proj/feature/src/lib")
	if !ok || workspace.Name != "feature" {
		t.Errorf("Containing(/proj/feature/src/lib) = %v, %v, want feature", workspace.Name, ok)
	}
	if _, ok := snapshot.Containing("/proj/feature-two"); ok {
		t.Error("Containing matched a path that only shares a prefix")
	}
	if _, ok := snapshot.Containing("/proj"); ok {
		t.Error("Containing matched the project root")
	}
}

func TestParseListErrorsAreUnparseable(t *testing.T) {
	_, err := ParseList("garbage")
	if !errors.Is(err, errUnparseable) {
		t.Fatalf("error = %v, want errUnparseable", err)
	}
}
