// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dagfront/dagfront/lib/clock"
	"github.com/dagfront/dagfront/lib/config"
	"github.com/dagfront/dagfront/lib/dirmove"
	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/opstore"
	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/topology"
	"github.com/dagfront/dagfront/lib/workspace"
)

// Options configures Open.
type Options struct {
	// Dir is the starting directory. Empty means the process working
	// directory.
	Dir string

	// Logger is shared by every component. Nil discards.
	Logger *slog.Logger

	// Runner executes jj. Nil runs the configured binary.
	Runner pipeline.Runner

	// Clock stamps job durations and archive names. Nil means the real
	// clock.
	Clock clock.Clock
}

// Session is an attached front-end session. Methods are safe for
// concurrent use; every jj invocation goes through the one pipeline.
type Session struct {
	config   *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	registry *workspace.Registry
	planner  *topology.Planner
	location jj.Location

	mu       sync.Mutex
	warnings []workspace.Mismatch
}

// Open discovers the workspace for options.Dir, starts the command
// pipeline, and takes the startup snapshot. Store mismatches found at
// startup are logged and kept for Warnings; they do not fail Open.
func Open(ctx context.Context, cfg *config.Config, options Options) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir := options.Dir
	if dir == "" {
		working, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		dir = working
	}
	location, err := jj.Discover(dir, cfg.Layout.DefaultName)
	if err != nil {
		return nil, err
	}
	if location.Recovered {
		logger.Info("started outside a workspace, attached to a workspace subdirectory",
			"dir", dir,
			"workspace", location.Root,
		)
	}

	runner := options.Runner
	if runner == nil {
		runner = pipeline.ExecRunner{Binary: cfg.JJ.Binary, GlobalArgs: cfg.JJ.GlobalArgs}
	}
	p := pipeline.New(runner, pipeline.Options{Logger: logger, Clock: options.Clock})
	p.Start()

	registry := workspace.NewRegistry(p, workspace.Options{
		Dir:         location.Root,
		ListArgs:    jj.WorkspaceList(cfg.JJ.ListTemplate),
		DefaultName: cfg.Layout.DefaultName,
		Logger:      logger,
	})
	planner := topology.NewPlanner(topology.Options{
		Sequencer:   p,
		Registry:    registry,
		Mover:       dirmove.New(dirmove.Options{Logger: logger}),
		StoreIndex:  cfg.Store.Index,
		DefaultName: cfg.Layout.DefaultName,
		ArchiveDir:  cfg.Layout.ArchiveDir,
		Clock:       options.Clock,
		Logger:      logger,
	})

	s := &Session{
		config:   cfg,
		logger:   logger,
		pipeline: p,
		registry: registry,
		planner:  planner,
		location: location,
	}

	snapshot, err := registry.Refresh(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}
	logger.Info("session opened",
		"workspace", location.Root,
		"layout", snapshot.Layout,
		"workspaces", len(snapshot.Workspaces),
	)

	mismatches, err := s.Check(ctx)
	if err != nil {
		logger.Warn("startup consistency check failed", "error", err)
	}
	for _, mismatch := range mismatches {
		logger.Warn("workspace store mismatch",
			"workspace", mismatch.Workspace,
			"kind", mismatch.Kind,
			"detail", mismatch.String(),
		)
	}
	s.mu.Lock()
	s.warnings = mismatches
	s.mu.Unlock()
	return s, nil
}

// Close stops the pipeline after the running job, if any, finishes.
func (s *Session) Close() {
	s.pipeline.Close()
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() *config.Config {
	return s.config
}

// Recovered reports whether Open attached to a subdirectory of the
// starting directory.
func (s *Session) Recovered() bool {
	return s.location.Recovered
}

// Attached returns the workspace directory the session currently runs
// jj in.
func (s *Session) Attached() string {
	return s.registry.Dir()
}

// Warnings returns the mismatches found by the most recent Check.
func (s *Session) Warnings() []workspace.Mismatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]workspace.Mismatch(nil), s.warnings...)
}

// Snapshot returns the last workspace snapshot without running jj.
func (s *Session) Snapshot() workspace.Snapshot {
	snapshot, _ := s.registry.Current()
	return snapshot
}

// Refresh re-lists the workspaces.
func (s *Session) Refresh(ctx context.Context) (workspace.Snapshot, error) {
	return s.registry.Refresh(ctx)
}

// Preview builds the plan for intent without executing it.
func (s *Session) Preview(ctx context.Context, intent topology.Intent) (*topology.Plan, error) {
	return s.planner.Preview(ctx, intent)
}

// Execute runs the plan for intent. The registry already follows the
// attached workspace when the plan moves it.
func (s *Session) Execute(ctx context.Context, intent topology.Intent) (*topology.Report, error) {
	before := s.registry.Dir()
	report, err := s.planner.Execute(ctx, intent)
	if err != nil {
		return nil, err
	}
	for _, warning := range report.Warnings {
		s.logger.Warn("plan warning", "plan_id", report.Plan.ID.String(), "warning", warning)
	}
	if report.Attached != before {
		s.logger.Info("attached workspace moved", "from", before, "to", report.Attached)
	}
	return report, nil
}

// UpdateStale runs "jj workspace update-stale" in the attached
// workspace and returns its output.
func (s *Session) UpdateStale(ctx context.Context) (string, error) {
	result, err := s.pipeline.Run(ctx, pipeline.Job{
		Args:    jj.WorkspaceUpdateStale(),
		Dir:     s.registry.Dir(),
		Capture: true,
		Label:   "update stale workspace",
	})
	return strings.TrimSpace(result.Stdout + result.Stderr), err
}

// Root returns the root reported by "jj workspace root" for the
// attached workspace.
func (s *Session) Root(ctx context.Context) (string, error) {
	result, err := s.pipeline.Run(ctx, pipeline.Job{
		Args:    jj.WorkspaceRoot(),
		Dir:     s.registry.Dir(),
		Capture: true,
		Label:   "workspace root",
	})
	if err != nil {
		return "", err
	}
	root := strings.TrimSpace(result.Stdout)
	if root == "" {
		return "", fmt.Errorf("jj workspace root printed nothing for %s", s.registry.Dir())
	}
	return root, nil
}

// Check compares the current snapshot with the workspace store and the
// filesystem. It reports mismatches; it never repairs them.
func (s *Session) Check(ctx context.Context) ([]workspace.Mismatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot, ok := s.registry.Current()
	if !ok {
		return nil, workspace.ErrRegistryUnavailable
	}
	repoDir, err := jj.RepoDir(s.registry.Dir())
	if err != nil {
		return nil, err
	}
	store := opstore.Open(filepath.Join(repoDir, s.config.Store.Index))
	mismatches, err := workspace.Check(snapshot, store, nil)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.warnings = mismatches
	s.mu.Unlock()
	return mismatches, nil
}

// Transcript returns the retained command history.
func (s *Session) Transcript() []pipeline.Entry {
	return s.pipeline.Transcript()
}
