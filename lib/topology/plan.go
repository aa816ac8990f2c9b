// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/workspace"
)

// Intent is a requested topology change.
type Intent interface {
	isIntent()
	String() string
}

// AddWorkspace creates a workspace called Name.
type AddWorkspace struct {
	Name string
}

// ForgetWorkspace stops tracking the workspace called Name and moves
// its directory out of the project root.
type ForgetWorkspace struct {
	Name string
}

// RenameWorkspace renames workspace From to To, moving its directory
// when the layout is scooped.
type RenameWorkspace struct {
	From string
	To   string
}

func (AddWorkspace) isIntent()    {}
func (ForgetWorkspace) isIntent() {}
func (RenameWorkspace) isIntent() {}

func (i AddWorkspace) String() string    { return "add workspace " + i.Name }
func (i ForgetWorkspace) String() string { return "forget workspace " + i.Name }
func (i RenameWorkspace) String() string { return "rename workspace " + i.From + " to " + i.To }

// Step is one unit of a plan.
type Step interface {
	isStep()
	String() string
}

// InvokeVCS runs a jj command. Undo, when set, is the command that
// reverses it. Creates names a directory the command creates, which is
// removed again after Undo.
type InvokeVCS struct {
	Job     pipeline.Job
	Undo    *pipeline.Job
	Creates string
}

// MoveDirectory relocates From to To. With Contents set, the children
// of From are moved into To instead (see dirmove.Mover.MoveContents)
// and Exclude names children to leave behind. SkipMissing turns a
// missing From into a no-op.
type MoveDirectory struct {
	From        string
	To          string
	Contents    bool
	Exclude     []string
	SkipMissing bool
}

// PatchStoreRecord points the store record of Workspace at NewPath.
// StorePath is where the store file is when this step runs.
type PatchStoreRecord struct {
	StorePath string
	Workspace string
	NewPath   string
}

func (InvokeVCS) isStep()        {}
func (MoveDirectory) isStep()    {}
func (PatchStoreRecord) isStep() {}

func (s InvokeVCS) String() string {
	return fmt.Sprintf("run %s (in %s)", s.Job, s.Job.Dir)
}

func (s MoveDirectory) String() string {
	if s.Contents {
		return fmt.Sprintf("move the contents of %s into %s", s.From, s.To)
	}
	return fmt.Sprintf("move %s to %s", s.From, s.To)
}

func (s PatchStoreRecord) String() string {
	return fmt.Sprintf("record workspace %s at %s", s.Workspace, s.NewPath)
}

// Plan is the ordered steps for one intent, built against Before.
type Plan struct {
	ID     uuid.UUID
	Intent Intent
	Before workspace.Snapshot
	Steps  []Step
}

// Describe returns one line per step, numbered from 1.
func (p *Plan) Describe() []string {
	lines := make([]string, len(p.Steps))
	for index, step := range p.Steps {
		lines[index] = fmt.Sprintf("%d. %s", index+1, step)
	}
	return lines
}

func (p *Plan) String() string {
	return p.Intent.String() + ":\n  " + strings.Join(p.Describe(), "\n  ")
}

// Follow returns where path ends up after every move in the plan. A
// path inside a moved directory moves with it; a path equal to the
// source of a contents move becomes its destination.
func (p *Plan) Follow(path string) string {
	path = filepath.Clean(path)
	for _, step := range p.Steps {
		if move, ok := step.(MoveDirectory); ok {
			path = rebase(path, move.From, move.To)
		}
	}
	return path
}

// rebase maps path from under from to under to. Paths outside from are
// returned unchanged.
func rebase(path, from, to string) string {
	if path == from {
		return to
	}
	relative, err := filepath.Rel(from, path)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(to, relative)
}
