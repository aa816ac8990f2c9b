// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/dagfront/dagfront/lib/dirmove"
	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/workspace"
)

var (
	ErrInvalidName       = errors.New("invalid workspace name")
	ErrWorkspaceExists   = errors.New("workspace already exists")
	ErrWorkspaceNotFound = errors.New("no such workspace")
	ErrLastWorkspace     = errors.New("cannot forget the only workspace")

	// ErrRenameSoleWorkspace means the intent would give the only
	// workspace a name other than the default. Its directory is the
	// project root, and a later add could not tell the two apart.
	ErrRenameSoleWorkspace = errors.New("cannot rename the only workspace away from the default name")

	// ErrForeignLayout means the workspaces are not arranged the way
	// this tool arranges them, so it will not move anything.
	ErrForeignLayout = errors.New("workspace layout not managed by dagfront")

	// ErrRepoHostMove means the plan would move or remove the workspace
	// that hosts the repository while other workspaces point at it by
	// absolute path.
	ErrRepoHostMove = errors.New("cannot move the workspace that hosts the repository while other workspaces exist")

	// ErrTopologyDrift means the workspace store disagrees with the
	// listing or the filesystem, so the snapshot cannot be trusted.
	ErrTopologyDrift = errors.New("workspace store and filesystem disagree")

	// ErrPathCollision is dirmove.ErrPathCollision, re-exported so
	// callers of this package need not import dirmove.
	ErrPathCollision = dirmove.ErrPathCollision
)

// Env is what Build needs besides the snapshot.
type Env struct {
	// RepoDir is the repository directory (.jj/repo of the hosting
	// workspace) as it is now.
	RepoDir string

	// StoreIndex is the workspace store path relative to RepoDir.
	StoreIndex string

	// DefaultName is the name of the original workspace.
	DefaultName string

	// ArchiveDir receives forgotten workspace directories. Empty means
	// <parent of project root>/.<project>-forgotten.
	ArchiveDir string

	// Now stamps archive directory names.
	Now time.Time
}

// ValidateName reports whether name can be used as a workspace name,
// which is also a directory name inside the project root.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > 255:
		return fmt.Errorf("%w: longer than 255 bytes", ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q starts with a dash", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == ':' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Build validates intent against snapshot and returns the plan that
// carries it out. It reads nothing from disk.
func Build(snapshot workspace.Snapshot, intent Intent, env Env) (*Plan, error) {
	if len(snapshot.Workspaces) == 0 {
		return nil, fmt.Errorf("%s: %w: no workspaces listed", intent, workspace.ErrRegistryUnavailable)
	}
	if snapshot.Layout == workspace.Foreign {
		return nil, fmt.Errorf("%s: %w", intent, ErrForeignLayout)
	}

	host, hasHost := hostOf(snapshot, env.RepoDir)
	builder := &builder{snapshot: snapshot, env: env, host: host, hasHost: hasHost}
	var steps []Step
	var err error
	switch intent := intent.(type) {
	case AddWorkspace:
		steps, err = builder.add(intent)
	case ForgetWorkspace:
		steps, err = builder.forget(intent)
	case RenameWorkspace:
		steps, err = builder.rename(intent)
	default:
		err = fmt.Errorf("unknown intent %T", intent)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", intent, err)
	}
	return &Plan{ID: uuid.New(), Intent: intent, Before: snapshot, Steps: steps}, nil
}

type builder struct {
	snapshot workspace.Snapshot
	env      Env

	// host is the workspace whose .jj/repo is RepoDir, if it is
	// listed.
	host    workspace.Workspace
	hasHost bool
}

func hostOf(snapshot workspace.Snapshot, repoDir string) (workspace.Workspace, bool) {
	for _, candidate := range snapshot.Workspaces {
		if filepath.Join(candidate.Path, jj.MarkerDir, "repo") == filepath.Clean(repoDir) {
			return candidate, true
		}
	}
	return workspace.Workspace{}, false
}

// runDir is the workspace topology commands run in: the host, or the
// default workspace, or the first listed.
func (b *builder) runDir() string {
	if b.hasHost {
		return b.host.Path
	}
	if candidate, ok := b.snapshot.Lookup(b.env.DefaultName); ok {
		return candidate.Path
	}
	return b.snapshot.Workspaces[0].Path
}

// storePath returns the store location after the given moves.
func (b *builder) storePath(moves ...MoveDirectory) string {
	repoDir := filepath.Clean(b.env.RepoDir)
	for _, move := range moves {
		repoDir = rebase(repoDir, move.From, move.To)
	}
	return filepath.Join(repoDir, b.env.StoreIndex)
}

func (b *builder) isHost(candidate workspace.Workspace) bool {
	return b.hasHost && candidate.Name == b.host.Name
}

func (b *builder) add(intent AddWorkspace) ([]Step, error) {
	if err := ValidateName(intent.Name); err != nil {
		return nil, err
	}
	if _, exists := b.snapshot.Lookup(intent.Name); exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceExists, intent.Name)
	}

	root := b.snapshot.ProjectRoot
	var steps []Step
	runDir := b.runDir()

	if b.snapshot.Layout == workspace.Unscooped {
		sole := b.snapshot.Workspaces[0]
		scooped := filepath.Join(root, sole.Name)
		scoop := MoveDirectory{From: root, To: scooped, Contents: true}
		steps = append(steps,
			scoop,
			PatchStoreRecord{StorePath: b.storePath(scoop), Workspace: sole.Name, NewPath: scooped},
		)
		runDir = rebase(runDir, scoop.From, scoop.To)
	}

	target := filepath.Join(root, intent.Name)
	steps = append(steps, InvokeVCS{
		Job: pipeline.Job{
			Args:  jj.WorkspaceAdd(intent.Name, target),
			Dir:   runDir,
			Label: "add workspace " + intent.Name,
		},
		Undo: &pipeline.Job{
			Args:  jj.WorkspaceForget(intent.Name),
			Dir:   runDir,
			Label: "forget workspace " + intent.Name,
		},
		Creates: target,
	})
	return steps, nil
}

func (b *builder) forget(intent ForgetWorkspace) ([]Step, error) {
	target, exists := b.snapshot.Lookup(intent.Name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, intent.Name)
	}
	if len(b.snapshot.Workspaces) == 1 {
		return nil, ErrLastWorkspace
	}
	if b.isHost(target) {
		return nil, fmt.Errorf("%w: %s", ErrRepoHostMove, target.Name)
	}

	runDir := b.runDir()
	steps := []Step{
		InvokeVCS{Job: pipeline.Job{
			Args:  jj.WorkspaceForget(intent.Name),
			Dir:   runDir,
			Label: "forget workspace " + intent.Name,
		}},
		MoveDirectory{From: target.Path, To: b.archivePath(target.Name), SkipMissing: true},
	}

	// Down to one workspace: un-scoop it back into the project root.
	if len(b.snapshot.Workspaces) == 2 {
		var remaining workspace.Workspace
		for _, candidate := range b.snapshot.Workspaces {
			if candidate.Name != target.Name {
				remaining = candidate
			}
		}
		if remaining.Name == b.env.DefaultName && remaining.IsScooped {
			root := b.snapshot.ProjectRoot
			unscoop := MoveDirectory{From: remaining.Path, To: root, Contents: true}
			steps = append(steps,
				unscoop,
				PatchStoreRecord{StorePath: b.storePath(unscoop), Workspace: remaining.Name, NewPath: root},
			)
		}
	}
	return steps, nil
}

func (b *builder) rename(intent RenameWorkspace) ([]Step, error) {
	source, exists := b.snapshot.Lookup(intent.From)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, intent.From)
	}
	if err := ValidateName(intent.To); err != nil {
		return nil, err
	}
	if _, exists := b.snapshot.Lookup(intent.To); exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceExists, intent.To)
	}
	if b.snapshot.Layout == workspace.Unscooped && intent.To != b.env.DefaultName {
		return nil, fmt.Errorf("%w: %s", ErrRenameSoleWorkspace, intent.To)
	}

	steps := []Step{InvokeVCS{
		Job: pipeline.Job{
			Args:  jj.WorkspaceRename(intent.To),
			Dir:   source.Path,
			Label: "rename workspace " + intent.From + " to " + intent.To,
		},
		Undo: &pipeline.Job{
			Args:  jj.WorkspaceRename(intent.From),
			Dir:   source.Path,
			Label: "rename workspace " + intent.To + " back to " + intent.From,
		},
	}}
	if !source.IsScooped {
		return steps, nil
	}
	if b.isHost(source) {
		return nil, fmt.Errorf("%w: %s", ErrRepoHostMove, source.Name)
	}

	destination := filepath.Join(b.snapshot.ProjectRoot, intent.To)
	move := MoveDirectory{From: source.Path, To: destination}
	steps = append(steps,
		move,
		PatchStoreRecord{StorePath: b.storePath(move), Workspace: intent.To, NewPath: destination},
	)
	return steps, nil
}

// archivePath is where a forgotten workspace's directory goes.
func (b *builder) archivePath(name string) string {
	archive := b.env.ArchiveDir
	if archive == "" {
		root := b.snapshot.ProjectRoot
		archive = filepath.Join(filepath.Dir(root), "."+filepath.Base(root)+"-forgotten")
	}
	return filepath.Join(archive, name+"-"+b.env.Now.UTC().Format("20060102T150405Z"))
}
