// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dagfront/dagfront/lib/clock"
	"github.com/dagfront/dagfront/lib/dirmove"
	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/opstore"
	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/workspace"
)

// Sequencer runs fn with exclusive use of the command pipeline.
// *pipeline.Pipeline implements it.
type Sequencer interface {
	Exclusive(ctx context.Context, fn func(ctx context.Context, session *pipeline.Session) error) error
}

// Mover relocates directories. *dirmove.Mover implements it.
type Mover interface {
	Move(from, to string) (dirmove.Result, error)
	MoveContents(from, to string, exclude []string) (dirmove.Result, error)
	MoveEntries(from, to string, entries []string) (dirmove.Result, error)
}

// RecordStore rewrites workspace records in one store file.
// *opstore.Store implements it.
type RecordStore interface {
	Patch(name, newPath string) (opstore.Record, error)
	Restore(name string, raw []byte) error
}

// Options configures a Planner.
type Options struct {
	Sequencer Sequencer
	Registry  *workspace.Registry

	// Mover performs MoveDirectory steps. Nil means a dirmove.Mover
	// logging to Logger.
	Mover Mover

	// OpenStore opens the store a PatchStoreRecord step edits. Nil
	// means opstore.Open with Logger.
	OpenStore func(path string) RecordStore

	// StoreIndex, DefaultName, and ArchiveDir are copied into the
	// [Env] of every plan.
	StoreIndex  string
	DefaultName string
	ArchiveDir  string

	// Probe tells whether a path holds a workspace. Nil means
	// jj.IsWorkspace.
	Probe workspace.Probe

	Clock  clock.Clock
	Logger *slog.Logger
}

// Planner builds and executes plans.
type Planner struct {
	sequencer   Sequencer
	registry    *workspace.Registry
	mover       Mover
	openStore   func(path string) RecordStore
	storeIndex  string
	defaultName string
	archiveDir  string
	probe       workspace.Probe
	clock       clock.Clock
	logger      *slog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(options Options) *Planner {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	probe := options.Probe
	if probe == nil {
		probe = jj.IsWorkspace
	}
	mover := options.Mover
	if mover == nil {
		mover = dirmove.New(dirmove.Options{Logger: logger})
	}
	openStore := options.OpenStore
	if openStore == nil {
		openStore = func(path string) RecordStore {
			return opstore.Open(path).WithLogger(logger)
		}
	}
	return &Planner{
		sequencer:   options.Sequencer,
		registry:    options.Registry,
		mover:       mover,
		openStore:   openStore,
		storeIndex:  options.StoreIndex,
		defaultName: options.DefaultName,
		archiveDir:  options.ArchiveDir,
		probe:       probe,
		clock:       clock.OrReal(options.Clock),
		logger:      logger,
	}
}

// Report describes a completed plan.
type Report struct {
	Plan *Plan

	// After is the registry snapshot taken once the plan completed.
	After workspace.Snapshot

	// Attached is the workspace directory the registry lists from
	// after the plan, which differs from before when the plan moved or
	// forgot it.
	Attached string

	Warnings   []string
	Transcript []pipeline.Entry
}

// PlanError reports a plan that failed part-way. The steps before
// StepIndex were compensated in reverse order; RollbackErrors lists
// compensations that failed and Warnings lists steps that could not be
// compensated at all.
type PlanError struct {
	PlanID    uuid.UUID
	Intent    Intent
	StepIndex int
	Step      Step
	Err       error

	RollbackErrors []error
	Warnings       []string
	Transcript     []pipeline.Entry
}

func (e *PlanError) Error() string {
	message := fmt.Sprintf("%s: step %d (%s) failed: %v", e.Intent, e.StepIndex+1, e.Step, e.Err)
	if len(e.RollbackErrors) > 0 {
		message += fmt.Sprintf("; rollback incomplete: %v", errors.Join(e.RollbackErrors...))
	}
	return message
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// RolledBack reports whether every completed step was compensated.
func (e *PlanError) RolledBack() bool {
	return len(e.RollbackErrors) == 0 && len(e.Warnings) == 0
}

// compensation undoes one completed step. A nil undo means the step
// cannot be reversed.
type compensation struct {
	step Step
	undo func(ctx context.Context) error
}

// Preview builds the plan for intent against a fresh snapshot and runs
// the read-only checks, without executing anything. The plan is
// returned even when the checks fail, so it can be shown.
func (p *Planner) Preview(ctx context.Context, intent Intent) (*Plan, error) {
	before, err := p.registry.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	plan, env, err := p.build(before, intent)
	if err != nil {
		return nil, err
	}
	if _, err := checkDrift(before, p.store(env), p.probe, intent); err != nil {
		return plan, err
	}
	return plan, Preflight(plan)
}

// Execute carries out intent as one exclusive pipeline section. On
// failure after the first mutation the error is a *PlanError.
func (p *Planner) Execute(ctx context.Context, intent Intent) (*Report, error) {
	var report *Report
	err := p.sequencer.Exclusive(ctx, func(ctx context.Context, session *pipeline.Session) error {
		var err error
		report, err = p.execute(ctx, session, intent)
		return err
	})
	return report, err
}

func (p *Planner) execute(ctx context.Context, session *pipeline.Session, intent Intent) (*Report, error) {
	before, err := p.registry.RefreshWith(ctx, session)
	if err != nil {
		return nil, err
	}
	plan, env, err := p.build(before, intent)
	if err != nil {
		return nil, err
	}
	warnings, err := checkDrift(before, p.store(env), p.probe, intent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", intent, err)
	}
	if err := Preflight(plan); err != nil {
		return nil, fmt.Errorf("%s: %w", intent, err)
	}

	logger := p.logger.With("plan_id", plan.ID.String(), "intent", intent.String())
	logger.Info("executing plan", "steps", len(plan.Steps))

	var completed []compensation
	for index, step := range plan.Steps {
		logger.Debug("plan step", "index", index+1, "step", step.String())
		undo, warning, err := p.apply(ctx, session, step)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if undo != nil {
			completed = append(completed, *undo)
		}
		if err == nil {
			continue
		}

		planError := &PlanError{PlanID: plan.ID, Intent: intent, StepIndex: index, Step: step, Err: err}
		logger.Error("plan step failed", "index", index+1, "step", step.String(), "error", err)
		planError.RollbackErrors, planError.Warnings = p.unwind(ctx, logger, completed)
		planError.Warnings = append(warnings, planError.Warnings...)
		planError.Transcript = session.Entries()
		return nil, planError
	}

	attached := p.follow(plan, env)
	p.registry.SetDir(attached)
	after, err := p.registry.RefreshWith(ctx, session)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("plan completed but the workspace list could not be refreshed: %v", err))
	}
	logger.Info("plan completed", "layout", after.Layout, "workspaces", len(after.Workspaces))

	return &Report{
		Plan:       plan,
		After:      after,
		Attached:   attached,
		Warnings:   warnings,
		Transcript: session.Entries(),
	}, nil
}

func (p *Planner) build(before workspace.Snapshot, intent Intent) (*Plan, Env, error) {
	repoDir, err := jj.RepoDir(p.registry.Dir())
	if err != nil {
		return nil, Env{}, err
	}
	env := Env{
		RepoDir:     repoDir,
		StoreIndex:  p.storeIndex,
		DefaultName: p.defaultName,
		ArchiveDir:  p.archiveDir,
		Now:         p.clock.Now(),
	}
	plan, err := Build(before, intent, env)
	return plan, env, err
}

func (p *Planner) store(env Env) *opstore.Store {
	return opstore.Open(filepath.Join(env.RepoDir, env.StoreIndex)).WithLogger(p.logger)
}

// apply runs one step. The returned compensation may be non-nil even
// when err is set, for a step that partially completed.
func (p *Planner) apply(ctx context.Context, session *pipeline.Session, step Step) (*compensation, string, error) {
	switch step := step.(type) {
	case InvokeVCS:
		if _, err := session.Run(ctx, step.Job); err != nil {
			return nil, "", err
		}
		if step.Undo == nil {
			return &compensation{step: step}, "", nil
		}
		undo := *step.Undo
		return &compensation{step: step, undo: func(ctx context.Context) error {
			if _, err := session.Run(ctx, undo); err != nil {
				return err
			}
			if step.Creates != "" {
				return os.RemoveAll(step.Creates)
			}
			return nil
		}}, "", nil

	case MoveDirectory:
		if step.SkipMissing {
			if _, err := os.Lstat(step.From); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Sprintf("%s no longer exists; nothing to move", step.From), nil
			}
		}
		if step.Contents {
			result, err := p.mover.MoveContents(step.From, step.To, step.Exclude)
			if len(result.Entries) == 0 {
				return nil, "", err
			}
			entries := result.Entries
			return &compensation{step: step, undo: func(context.Context) error {
				_, err := p.mover.MoveEntries(step.To, step.From, entries)
				return err
			}}, "", err
		}
		_, err := p.mover.Move(step.From, step.To)
		if _, statErr := os.Lstat(step.From); err != nil && statErr == nil {
			// Nothing left the source.
			return nil, "", err
		}
		return &compensation{step: step, undo: func(context.Context) error {
			_, err := p.mover.Move(step.To, step.From)
			return err
		}}, "", err

	case PatchStoreRecord:
		store := p.openStore(step.StorePath)
		previous, err := store.Patch(step.Workspace, step.NewPath)
		if err != nil {
			return nil, "", err
		}
		return &compensation{step: step, undo: func(context.Context) error {
			return store.Restore(step.Workspace, previous.Raw)
		}}, "", nil
	}
	return nil, "", fmt.Errorf("unknown step %T", step)
}

// unwind runs compensations newest first. Every compensation is
// attempted regardless of earlier failures.
func (p *Planner) unwind(ctx context.Context, logger *slog.Logger, completed []compensation) ([]error, []string) {
	var failures []error
	var warnings []string
	for index := len(completed) - 1; index >= 0; index-- {
		entry := completed[index]
		if entry.undo == nil {
			warning := fmt.Sprintf("%s cannot be undone", entry.step)
			logger.Warn("step not compensated", "step", entry.step.String())
			warnings = append(warnings, warning)
			continue
		}
		if err := entry.undo(ctx); err != nil {
			logger.Error("compensation failed", "step", entry.step.String(), "error", err)
			failures = append(failures, fmt.Errorf("undoing %s: %w", entry.step, err))
			continue
		}
		logger.Info("step compensated", "step", entry.step.String())
	}
	return failures, warnings
}

// follow returns the workspace directory to list from after plan: the
// attached workspace's new location, or the hosting workspace when the
// attached one was forgotten.
func (p *Planner) follow(plan *Plan, env Env) string {
	dir := p.registry.Dir()
	hostRoot := filepath.Dir(filepath.Dir(plan.Follow(env.RepoDir)))

	attached, ok := plan.Before.Containing(dir)
	if !ok {
		return hostRoot
	}
	if forget, isForget := plan.Intent.(ForgetWorkspace); isForget && forget.Name == attached.Name {
		return hostRoot
	}
	if moved := plan.Follow(dir); p.probe(moved) {
		return moved
	}
	return hostRoot
}
