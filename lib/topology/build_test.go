// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dagfront/dagfront/lib/workspace"
)

var buildTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func unscooped() workspace.Snapshot {
	return workspace.Derive([]workspace.Entry{{Name: "default", Path: "/proj"}}, "default")
}

func scooped(names ...string) workspace.Snapshot {
	var entries []workspace.Entry
	for _, name := range names {
		entries = append(entries, workspace.Entry{Name: name, Path: "/proj/" + name})
	}
	return workspace.Derive(entries, "default")
}

func envFor(repoDir string) Env {
	return Env{
		RepoDir:     repoDir,
		StoreIndex:  "workspace_store/index",
		DefaultName: "default",
		Now:         buildTime,
	}
}

func TestBuild_AddUnscoopedScoopsFirst(t *testing.T) {
	plan, err := Build(unscooped(), AddWorkspace{Name: "feature"}, envFor("/proj/.jj/repo"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Step{
		MoveDirectory{From: "/proj", To: "/proj/default", Contents: true},
		PatchStoreRecord{StorePath: "/proj/default/.jj/repo/workspace_store/index", Workspace: "default", NewPath: "/proj/default"},
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("steps = %v, want 3", plan.Describe())
	}
	for index, step := range want {
		if !stepEqual(plan.Steps[index], step) {
			t.Errorf("step %d = %#v, want %#v", index+1, plan.Steps[index], step)
		}
	}
	add, ok := plan.Steps[2].(InvokeVCS)
	if !ok {
		t.Fatalf("step 3 = %T, want InvokeVCS", plan.Steps[2])
	}
	if !slices.Equal(add.Job.Args, []string{"workspace", "add", "--name", "feature", "/proj/feature"}) {
		t.Errorf("add args = %v", add.Job.Args)
	}
	if add.Job.Dir != "/proj/default" {
		t.Errorf("add runs in %s, want the post-scoop /proj/default", add.Job.Dir)
	}
	if add.Undo == nil || !slices.Equal(add.Undo.Args, []string{"workspace", "forget", "feature"}) {
		t.Errorf("add undo = %v", add.Undo)
	}
	if add.Creates != "/proj/feature" {
		t.Errorf("Creates = %q", add.Creates)
	}
	if plan.ID.String() == "" || plan.Before.Layout != workspace.Unscooped {
		t.Errorf("plan metadata = %v %v", plan.ID, plan.Before.Layout)
	}
}

func TestBuild_AddScooped(t *testing.T) {
	plan, err := Build(scooped("default", "feature"), AddWorkspace{Name: "docs"}, envFor("/proj/default/.jj/repo"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("steps = %v, want only the add", plan.Describe())
	}
	add := plan.Steps[0].(InvokeVCS)
	if add.Job.Dir != "/proj/default" || add.Job.Args[4] != "/proj/docs" {
		t.Errorf("add = %v in %s", add.Job.Args, add.Job.Dir)
	}
}

func TestBuild_ForgetDownToDefaultUnscoops(t *testing.T) {
	plan, err := Build(scooped("default", "feature"), ForgetWorkspace{Name: "feature"}, envFor("/proj/default/.jj/repo"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Step{
		InvokeVCS{Job: plan.Steps[0].(InvokeVCS).Job},
		MoveDirectory{From: "/proj/feature", To: "/.proj-forgotten/feature-20260301T093000Z", SkipMissing: true},
		MoveDirectory{From: "/proj/default", To: "/proj", Contents: true},
		PatchStoreRecord{StorePath: "/proj/.jj/repo/workspace_store/index", Workspace: "default", NewPath: "/proj"},
	}
	if len(plan.Steps) != len(want) {
		t.Fatalf("steps = %v", plan.Describe())
	}
	for index, step := range want {
		if !stepEqual(plan.Steps[index], step) {
			t.Errorf("step %d = %#v, want %#v", index+1, plan.Steps[index], step)
		}
	}
	forget := plan.Steps[0].(InvokeVCS)
	if !slices.Equal(forget.Job.Args, []string{"workspace", "forget", "feature"}) || forget.Undo != nil {
		t.Errorf("forget step = %+v", forget)
	}
}

func TestBuild_ForgetKeepsScoopWithSeveralLeft(t *testing.T) {
	env := envFor("/proj/default/.jj/repo")
	env.ArchiveDir = "/archive"
	plan, err := Build(scooped("default", "feature", "docs"), ForgetWorkspace{Name: "docs"}, env)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("steps = %v, want forget and archive", plan.Describe())
	}
	if archive := plan.Steps[1].(MoveDirectory); archive.To != "/archive/docs-20260301T093000Z" {
		t.Errorf("archive destination = %s", archive.To)
	}
}

func TestBuild_RenameScooped(t *testing.T) {
	plan, err := Build(scooped("default", "feature"), RenameWorkspace{From: "feature", To: "topic"}, envFor("/proj/default/.jj/repo"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("steps = %v", plan.Describe())
	}
	rename := plan.Steps[0].(InvokeVCS)
	if rename.Job.Dir != "/proj/feature" || !slices.Equal(rename.Job.Args, []string{"workspace", "rename", "topic"}) {
		t.Errorf("rename = %v in %s", rename.Job.Args, rename.Job.Dir)
	}
	if rename.Undo == nil || !slices.Equal(rename.Undo.Args, []string{"workspace", "rename", "feature"}) {
		t.Errorf("rename undo = %v", rename.Undo)
	}
	if !stepEqual(plan.Steps[1], MoveDirectory{From: "/proj/feature", To: "/proj/topic"}) {
		t.Errorf("step 2 = %#v", plan.Steps[1])
	}
	if !stepEqual(plan.Steps[2], PatchStoreRecord{StorePath: "/proj/default/.jj/repo/workspace_store/index", Workspace: "topic", NewPath: "/proj/topic"}) {
		t.Errorf("step 3 = %#v", plan.Steps[2])
	}
}

func TestBuild_RenameUnscoopedOnlyRenames(t *testing.T) {
	// A sole workspace renamed outside dagfront may be renamed back.
	lone := workspace.Derive([]workspace.Entry{{Name: "main", Path: "/proj"}}, "default")
	plan, err := Build(lone, RenameWorkspace{From: "main", To: "default"}, envFor("/proj/.jj/repo"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("steps = %v, want only the jj rename", plan.Describe())
	}
}

func TestBuild_Rejections(t *testing.T) {
	foreign := workspace.Derive([]workspace.Entry{{Name: "default", Path: "/proj"}, {Name: "x", Path: "/elsewhere/y"}}, "default")
	tests := []struct {
		name     string
		snapshot workspace.Snapshot
		intent   Intent
		repoDir  string
		want     error
	}{
		{"add existing", scooped("default", "feature"), AddWorkspace{Name: "feature"}, "/proj/default/.jj/repo", ErrWorkspaceExists},
		{"add invalid", unscooped(), AddWorkspace{Name: "a/b"}, "/proj/.jj/repo", ErrInvalidName},
		{"add hidden", unscooped(), AddWorkspace{Name: ".x"}, "/proj/.jj/repo", ErrInvalidName},
		{"add with space", unscooped(), AddWorkspace{Name: "a b"}, "/proj/.jj/repo", ErrInvalidName},
		{"add empty", unscooped(), AddWorkspace{Name: ""}, "/proj/.jj/repo", ErrInvalidName},
		{"add in foreign layout", foreign, AddWorkspace{Name: "z"}, "/proj/.jj/repo", ErrForeignLayout},
		{"forget unknown", scooped("default", "feature"), ForgetWorkspace{Name: "ghost"}, "/proj/default/.jj/repo", ErrWorkspaceNotFound},
		{"forget last", unscooped(), ForgetWorkspace{Name: "default"}, "/proj/.jj/repo", ErrLastWorkspace},
		{"forget repo host", scooped("default", "feature"), ForgetWorkspace{Name: "default"}, "/proj/default/.jj/repo", ErrRepoHostMove},
		{"rename repo host while scooped", scooped("default", "feature"), RenameWorkspace{From: "default", To: "main"}, "/proj/default/.jj/repo", ErrRepoHostMove},
		{"rename onto existing", scooped("default", "feature"), RenameWorkspace{From: "feature", To: "default"}, "/proj/default/.jj/repo", ErrWorkspaceExists},
		{"rename sole workspace away from default", unscooped(), RenameWorkspace{From: "default", To: "main"}, "/proj/.jj/repo", ErrRenameSoleWorkspace},
		{"rename unknown", scooped("default", "feature"), RenameWorkspace{From: "ghost", To: "x"}, "/proj/default/.jj/repo", ErrWorkspaceNotFound},
		{"rename to invalid", scooped("default", "feature"), RenameWorkspace{From: "feature", To: "-x"}, "/proj/default/.jj/repo", ErrInvalidName},
		{"empty snapshot", workspace.Snapshot{}, AddWorkspace{Name: "x"}, "/proj/.jj/repo", workspace.ErrRegistryUnavailable},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			plan, err := Build(test.snapshot, test.intent, envFor(test.repoDir))
			if !errors.Is(err, test.want) {
				t.Fatalf("Build = %v, %v; want %v", plan, err, test.want)
			}
		})
	}
}

func TestPlanFollow(t *testing.T) {
	plan, err := Build(scooped("default", "feature"), ForgetWorkspace{Name: "feature"}, envFor("/proj/default/.jj/repo"))
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"/proj/default":          "/proj",
		"/proj/default/src":      "/proj/src",
		"/proj/default/.jj/repo": "/proj/.jj/repo",
		"/proj/feature":          "/.proj-forgotten/feature-20260301T093000Z",
		"/proj/defaults":         "/proj/defaults",
		"/elsewhere":             "/elsewhere",
	}
	for path, want := range tests {
		if got := plan.Follow(path); got != want {
			t.Errorf("Follow(%s) = %s, want %s", path, got, want)
		}
	}
}

// stepEqual compares steps field by field; Exclude is compared as a
// list.
func stepEqual(a, b Step) bool {
	switch a := a.(type) {
	case MoveDirectory:
		b, ok := b.(MoveDirectory)
		return ok && a.From == b.From && a.To == b.To && a.Contents == b.Contents &&
			a.SkipMissing == b.SkipMissing && slices.Equal(a.Exclude, b.Exclude)
	case PatchStoreRecord:
		b, ok := b.(PatchStoreRecord)
		return ok && a == b
	case InvokeVCS:
		b, ok := b.(InvokeVCS)
		return ok && slices.Equal(a.Job.Args, b.Job.Args) && a.Job.Dir == b.Job.Dir
	}
	return false
}
