// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package jj

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// makeWorkspace creates <dir>/.jj/repo as a directory (hosting) or as a
// pointer file with the given content.
func makeWorkspace(t *testing.T, dir string, pointer string) {
	t.Helper()
	marker := filepath.Join(dir, MarkerDir)
	if pointer == "" {
		if err := os.MkdirAll(filepath.Join(marker, "repo"), 0755); err != nil {
			t.Fatal(err)
		}
		return
	}
	if err := os.MkdirAll(marker, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(marker, "repo"), []byte(pointer), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeWorkspace(t, root, "")
	nested := filepath.Join(root, "src", "lib")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	location, err := Discover(nested, "default")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if location.Root != root || location.Recovered {
		t.Errorf("Discover = %+v, want Root=%s Recovered=false", location, root)
	}
}

func TestDiscover_RecoversScoopedProjectRoot(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	makeWorkspace(t, filepath.Join(project, "alpha"), "../../default/.jj/repo")
	makeWorkspace(t, filepath.Join(project, "default"), "")

	location, err := Discover(project, "default")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := filepath.Join(project, "default")
	if location.Root != want || !location.Recovered {
		t.Errorf("Discover = %+v, want Root=%s Recovered=true", location, want)
	}
}

func TestDiscover_RecoveryWithoutPreferredPicksLexicalFirst(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	makeWorkspace(t, filepath.Join(project, "zeta"), "")
	makeWorkspace(t, filepath.Join(project, "beta"), "")

	location, err := Discover(project, "default")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if location.Root != filepath.Join(project, "beta") {
		t.Errorf("Root = %s, want beta", location.Root)
	}
}

func TestDiscover_NotWorkspace(t *testing.T) {
	t.Parallel()

	_, err := Discover(t.TempDir(), "default")
	if !errors.Is(err, ErrNotWorkspace) {
		t.Errorf("Discover error = %v, want ErrNotWorkspace", err)
	}
}

func TestRepoDir(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	host := filepath.Join(project, "default")
	makeWorkspace(t, host, "")
	relative := filepath.Join(project, "relative")
	makeWorkspace(t, relative, "../../default/.jj/repo\n")
	absolute := filepath.Join(project, "absolute")
	makeWorkspace(t, absolute, filepath.Join(host, MarkerDir, "repo"))

	want := filepath.Join(host, MarkerDir, "repo")
	for _, root := range []string{host, relative, absolute} {
		got, err := RepoDir(root)
		if err != nil {
			t.Fatalf("RepoDir(%s): %v", root, err)
		}
		if got != want {
			t.Errorf("RepoDir(%s) = %s, want %s", root, got, want)
		}
	}
}

func TestRepoDir_EmptyPointer(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	makeWorkspace(t, root, "  \n")

	if _, err := RepoDir(root); err == nil {
		t.Error("RepoDir accepted an empty pointer file")
	}
}
