// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package jjtest provides an in-process stand-in for the jj binary.
//
// An [Engine] implements pipeline.Runner. It understands the workspace
// subcommands dagfront issues (list, add, forget, rename, update-stale,
// root) and keeps its state where jj does: in the workspace store file
// inside the hosting workspace's .jj/repo, and in each workspace's .jj
// directory. Because nothing is held in memory, directory moves and
// store patches made by the code under test are seen by the next
// command exactly as real jj would see them.
//
//	engine := jjtest.Init(t, filepath.Join(t.TempDir(), "proj"))
//	p := pipeline.New(engine, pipeline.Options{})
//	engine.FailNext("add", 1, "Error: disk full")
package jjtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/opstore"
	"github.com/dagfront/dagfront/lib/pipeline"
)

// StoreIndex is where the engine keeps the workspace store, relative to
// the repository directory. It matches the default configuration.
var StoreIndex = filepath.Join("workspace_store", "index")

// Engine is a fake jj.
type Engine struct {
	mu       sync.Mutex
	calls    []pipeline.Job
	failures []failure
}

type failure struct {
	subcommand string
	exitCode   int
	stderr     string
}

// Init creates a repository with a single default workspace at root,
// containing a few tracked files, and returns an engine for it.
func Init(t testing.TB, root string) *Engine {
	t.Helper()
	files := map[string]string{
		"README.md":   "# project\n",
		"src/main.go": "package main\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	repo := filepath.Join(root, jj.MarkerDir, "repo")
	for _, dir := range []string{filepath.Join(repo, "op_store"), filepath.Join(root, jj.MarkerDir, "working_copy")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	store := filepath.Join(repo, StoreIndex)
	if err := os.MkdirAll(filepath.Dir(store), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store, opstore.EncodeRecord("default", root), 0644); err != nil {
		t.Fatal(err)
	}
	return &Engine{}
}

// FailNext makes the next invocation of the workspace subcommand (for
// example "add") exit with exitCode and stderr, without side effects.
func (e *Engine) FailNext(subcommand string, exitCode int, stderr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, failure{subcommand: subcommand, exitCode: exitCode, stderr: stderr})
}

// Calls returns every job the engine has received, in order.
func (e *Engine) Calls() []pipeline.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// CallsTo returns the jobs for one workspace subcommand.
func (e *Engine) CallsTo(subcommand string) []pipeline.Job {
	var matching []pipeline.Job
	for _, job := range e.Calls() {
		if len(job.Args) >= 2 && job.Args[0] == "workspace" && job.Args[1] == subcommand {
			matching = append(matching, job)
		}
	}
	return matching
}

// Run implements pipeline.Runner.
func (e *Engine) Run(ctx context.Context, job pipeline.Job) (pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Result{}, err
	}
	e.mu.Lock()
	e.calls = append(e.calls, job)
	e.mu.Unlock()

	if len(job.Args) < 2 || job.Args[0] != "workspace" {
		return errorResult(2, "error: unrecognized subcommand %q", strings.Join(job.Args, " ")), nil
	}
	subcommand, args := job.Args[1], job.Args[2:]
	if failed, ok := e.takeFailure(subcommand); ok {
		return pipeline.Result{ExitCode: failed.exitCode, Stderr: failed.stderr + "\n"}, nil
	}

	if !jj.IsWorkspace(job.Dir) {
		return errorResult(1, "Error: There is no jj repo in %q", job.Dir), nil
	}
	repo, err := jj.RepoDir(job.Dir)
	if err != nil {
		return errorResult(1, "Error: %v", err), nil
	}
	state := &repository{dir: repo, store: filepath.Join(repo, StoreIndex)}
	if err := state.load(); err != nil {
		return errorResult(255, "Internal error: %v", err), nil
	}

	var output string
	switch subcommand {
	case "list":
		output, err = state.list()
	case "add":
		output, err = state.add(job.Dir, args)
	case "forget":
		output, err = state.forget(args)
	case "rename":
		output, err = state.rename(job.Dir, args)
	case "update-stale":
		output = "Working copy already up to date\n"
	case "root":
		output, err = state.root(job.Dir)
	default:
		return errorResult(2, "error: unrecognized subcommand 'workspace %s'", subcommand), nil
	}
	if err != nil {
		return errorResult(1, "Error: %v", err), nil
	}
	result := pipeline.Result{}
	if job.Capture {
		result.Stdout = output
	}
	return result, nil
}

func (e *Engine) takeFailure(subcommand string) (failure, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for index, candidate := range e.failures {
		if candidate.subcommand == subcommand {
			e.failures = slices.Delete(e.failures, index, index+1)
			return candidate, true
		}
	}
	return failure{}, false
}

func errorResult(code int, format string, args ...any) pipeline.Result {
	return pipeline.Result{ExitCode: code, Stderr: fmt.Sprintf(format, args...) + "\n"}
}

// repository is the engine's view of one repository, read from disk
// for each command.
type repository struct {
	dir     string
	store   string
	records []opstore.Record
}

func (r *repository) load() error {
	records, err := opstore.Open(r.store).Records()
	if err != nil {
		return err
	}
	r.records = records
	return nil
}

func (r *repository) save() error {
	return os.WriteFile(r.store, opstore.Encode(r.records), 0644)
}

func (r *repository) lookup(name string) int {
	return slices.IndexFunc(r.records, func(record opstore.Record) bool { return record.Name == name })
}

// current returns the index of the workspace whose recorded path is
// dir.
func (r *repository) current(dir string) int {
	dir = filepath.Clean(dir)
	return slices.IndexFunc(r.records, func(record opstore.Record) bool { return filepath.Clean(record.Path) == dir })
}

func (r *repository) list() (string, error) {
	var output strings.Builder
	for _, record := range r.records {
		fmt.Fprintf(&output, "%s\t%s\n", record.Name, record.Path)
	}
	return output.String(), nil
}

func (r *repository) add(dir string, args []string) (string, error) {
	var name, path string
	for index := 0; index < len(args); index++ {
		switch {
		case args[index] == "--name" && index+1 < len(args):
			name = args[index+1]
			index++
		case strings.HasPrefix(args[index], "-"):
			return "", fmt.Errorf("unexpected argument %q", args[index])
		default:
			path = args[index]
		}
	}
	if path == "" {
		return "", fmt.Errorf("missing destination path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	if r.lookup(name) >= 0 {
		return "", fmt.Errorf("Workspace named '%s' already exists", name)
	}
	if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
		return "", fmt.Errorf("Destination path exists and is not an empty directory")
	}

	if err := os.MkdirAll(filepath.Join(path, jj.MarkerDir, "working_copy"), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(path, jj.MarkerDir, "repo"), []byte(r.dir), 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte("# project\n"), 0644); err != nil {
		return "", err
	}
	r.records = append(r.records, opstore.Record{Name: name, Path: path})
	if err := r.save(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created workspace in %q\n", path), nil
}

func (r *repository) forget(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no workspace given")
	}
	for _, name := range names {
		index := r.lookup(name)
		if index < 0 {
			return "", fmt.Errorf("No such workspace: %s", name)
		}
		r.records = slices.Delete(r.records, index, index+1)
	}
	return "", r.save()
}

func (r *repository) rename(dir string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one new name")
	}
	index := r.current(dir)
	if index < 0 {
		return "", fmt.Errorf("The current workspace is not tracked")
	}
	if r.lookup(args[0]) >= 0 {
		return "", fmt.Errorf("Workspace named '%s' already exists", args[0])
	}
	r.records[index] = opstore.Record{Name: args[0], Path: r.records[index].Path}
	return "", r.save()
}

func (r *repository) root(dir string) (string, error) {
	index := r.current(dir)
	if index < 0 {
		return "", fmt.Errorf("The current workspace is not tracked")
	}
	return r.records[index].Path + "\n", nil
}
