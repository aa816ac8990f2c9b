// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
)

// TestCommandTree walks the production command tree and checks that
// every subcommand can be found from help output and parses its flags.
func TestCommandTree(t *testing.T) {
	root := rootCommand(&bytes.Buffer{})
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor Subcommands", name)
		}
		if command.Flags != nil {
			if err := command.Flags().Parse(nil); err != nil {
				t.Errorf("%s: empty flag parse: %v", name, err)
			}
		}
	})
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	if err := rootCommand(&stdout).Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "dagfront ") {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRootRejectsArguments(t *testing.T) {
	err := rootCommand(&bytes.Buffer{}).Execute(context.Background(), []string{"--config", "x.yaml", "worksapce"})
	if err == nil {
		t.Fatal("stray argument accepted")
	}
}

func TestResolveLogPath(t *testing.T) {
	absolute := filepath.Join(t.TempDir(), "dagfront.log")
	got, err := resolveLogPath(absolute)
	if err != nil || got != absolute {
		t.Errorf("resolveLogPath(%s) = %s, %v", absolute, got, err)
	}

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	got, err = resolveLogPath(filepath.Join("logs", "dagfront-2026-03-01.log"))
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), "dagfront", "logs", "dagfront-2026-03-01.log")
	if got != want {
		t.Errorf("resolveLogPath(relative) = %s, want %s", got, want)
	}
}

func TestOpenLogFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "dagfront.log")
	file, err := openLogFile(path)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	file.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
