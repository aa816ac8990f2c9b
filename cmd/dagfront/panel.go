// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	workspacecmd "github.com/dagfront/dagfront/cmd/dagfront/workspace"
	"github.com/dagfront/dagfront/lib/config"
	"github.com/dagfront/dagfront/lib/session"
	"github.com/dagfront/dagfront/lib/workspaceui"
)

// tuiFlags are the flags of the bare "dagfront" invocation.
type tuiFlags struct {
	workspacecmd.SessionFlags
	LogFile string
}

func (flags *tuiFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&flags.Repository, "repository", "R", "", "workspace directory to open (default: current directory)")
	flagSet.StringVar(&flags.ConfigPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.LogFile, "log-file", "", "write JSON log records to this file (default: log.file from the configuration)")
}

// runPanel opens a session and runs the workspace panel until the user
// quits. Log records go to the log file and, at warn and above, to the
// panel's status bar; nothing is written to stderr while the alternate
// screen is up.
func runPanel(ctx context.Context, flags tuiFlags) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return cli.Validation("%w", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return cli.Validation("%w", err)
	}

	path := flags.LogFile
	if path == "" {
		path, err = resolveLogPath(cfg.LogFile(time.Now().Format("2006-01-02")))
		if err != nil {
			return cli.Internal("resolving log file: %w", err)
		}
	}
	file, err := openLogFile(path)
	if err != nil {
		return cli.Validation("cannot open log file %s: %w", path, err)
	}
	defer file.Close()

	tuiHandler := workspaceui.NewTUILogHandler(slog.LevelWarn)
	logger := slog.New(workspaceui.FanoutHandler{
		tuiHandler,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	})

	s, err := session.Open(ctx, cfg, session.Options{Dir: flags.Repository, Logger: logger})
	if err != nil {
		return cli.Classify(err)
	}
	defer s.Close()

	program := tea.NewProgram(workspaceui.NewModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
	tuiHandler.SetProgram(program)

	_, err = program.Run()
	if err != nil {
		return fmt.Errorf("running workspace panel: %w", err)
	}
	return nil
}

// resolveLogPath anchors a relative log path in the user's cache
// directory. Logs never land inside a working copy.
func resolveLogPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "dagfront", path), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
