// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package jj

import (
	"context"
	"reflect"
	"testing"
)

func TestRepository_Args(t *testing.T) {
	t.Parallel()

	repo := NewRepository("jj", "/proj/default", []string{"--no-pager"})

	got := repo.Args("workspace", "root")
	want := []string{"--repository", "/proj/default", "--no-pager", "workspace", "root"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestRepository_Command(t *testing.T) {
	t.Parallel()

	repo := NewRepository("jj", "/some/dir", nil)

	cmd := repo.Command(context.Background(), "workspace", "list")

	// exec.Cmd.Args includes the program name as Args[0].
	expectedArgs := []string{"jj", "--repository", "/some/dir", "workspace", "list"}
	if !reflect.DeepEqual(cmd.Args, expectedArgs) {
		t.Errorf("cmd.Args = %v, want %v", cmd.Args, expectedArgs)
	}
	if cmd.Dir != "/some/dir" {
		t.Errorf("cmd.Dir = %q, want /some/dir", cmd.Dir)
	}
}

func TestArgumentBuilders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"list", WorkspaceList("name"), []string{"workspace", "list", "-T", "name"}},
		{"add", WorkspaceAdd("feature", "/proj/feature"), []string{"workspace", "add", "--name", "feature", "/proj/feature"}},
		{"forget", WorkspaceForget("a", "b"), []string{"workspace", "forget", "a", "b"}},
		{"rename", WorkspaceRename("main"), []string{"workspace", "rename", "main"}},
		{"update-stale", WorkspaceUpdateStale(), []string{"workspace", "update-stale"}},
		{"root", WorkspaceRoot(), []string{"workspace", "root"}},
	}
	for _, test := range tests {
		if !reflect.DeepEqual(test.got, test.want) {
			t.Errorf("%s: got %v, want %v", test.name, test.got, test.want)
		}
	}
}
