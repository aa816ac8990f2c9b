// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dagfront/dagfront/lib/pipeline"
)

// ErrRegistryUnavailable means the listing could not be obtained or
// parsed. The previous snapshot is still current.
var ErrRegistryUnavailable = errors.New("workspace registry unavailable")

// Options configures a Registry.
type Options struct {
	// Dir is the workspace the listing command runs in.
	Dir string

	// ListArgs are the jj arguments that print one "name<TAB>path"
	// line per workspace.
	ListArgs []string

	// DefaultName is the name of the default workspace.
	DefaultName string

	// Logger receives refresh outcomes. Nil discards.
	Logger *slog.Logger
}

// Registry holds the current snapshot.
type Registry struct {
	executor    pipeline.Executor
	listArgs    []string
	defaultName string
	logger      *slog.Logger

	mu      sync.RWMutex
	dir     string
	current Snapshot
	valid   bool
}

// NewRegistry creates a registry that lists workspaces through
// executor. The registry is empty until the first Refresh.
func NewRegistry(executor pipeline.Executor, options Options) *Registry {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		executor:    executor,
		listArgs:    options.ListArgs,
		defaultName: options.DefaultName,
		logger:      logger,
		dir:         options.Dir,
	}
}

// Dir returns the workspace the listing runs in.
func (r *Registry) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// SetDir points future listings at another workspace directory, for
// when the attached workspace has been relocated.
func (r *Registry) SetDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dir = dir
}

// Refresh lists workspaces through the registry's executor and
// replaces the snapshot.
func (r *Registry) Refresh(ctx context.Context) (Snapshot, error) {
	return r.RefreshWith(ctx, r.executor)
}

// RefreshWith is Refresh through a specific executor, typically the
// session of an exclusive pipeline section.
func (r *Registry) RefreshWith(ctx context.Context, executor pipeline.Executor) (Snapshot, error) {
	dir := r.Dir()
	result, err := executor.Run(ctx, pipeline.Job{
		Args:    r.listArgs,
		Dir:     dir,
		Capture: true,
		Label:   "list workspaces",
	})
	if err != nil {
		r.logger.Warn("workspace listing failed", "dir", dir, "error", err)
		return r.previous(), fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}

	entries, err := ParseList(result.Stdout)
	if err != nil {
		r.logger.Warn("workspace listing unparseable", "dir", dir, "error", err)
		return r.previous(), fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	snapshot := Derive(entries, r.defaultName)

	r.mu.Lock()
	r.current = snapshot
	r.valid = true
	r.mu.Unlock()

	r.logger.Debug("workspace registry refreshed",
		"workspaces", len(snapshot.Workspaces),
		"layout", snapshot.Layout,
		"project_root", snapshot.ProjectRoot,
	)
	return snapshot, nil
}

// Current returns the last snapshot without running anything. ok is
// false until a refresh has succeeded.
func (r *Registry) Current() (snapshot Snapshot, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.valid
}

func (r *Registry) previous() Snapshot {
	snapshot, _ := r.Current()
	return snapshot
}
