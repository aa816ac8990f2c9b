// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	"github.com/dagfront/dagfront/lib/config"
	"github.com/dagfront/dagfront/lib/session"
)

// Environment is what the commands need from the process.
type Environment struct {
	// Stdout receives command output.
	Stdout io.Writer

	// Open opens a session for the given flags.
	Open func(ctx context.Context, flags SessionFlags, logger *slog.Logger) (*session.Session, error)
}

// SessionFlags are the flags every workspace command accepts.
type SessionFlags struct {
	Repository string
	ConfigPath string
}

func (flags *SessionFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&flags.Repository, "repository", "R", "", "workspace directory to operate on (default: current directory)")
	flagSet.StringVar(&flags.ConfigPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+")")
}

// OpenSession loads the configuration and opens a session running the
// configured jj binary.
func OpenSession(ctx context.Context, flags SessionFlags, logger *slog.Logger) (*session.Session, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return session.Open(ctx, cfg, session.Options{Dir: flags.Repository, Logger: logger})
}

// DefaultEnvironment writes to os.Stdout and opens real sessions.
func DefaultEnvironment() Environment {
	return Environment{Stdout: os.Stdout, Open: OpenSession}
}

// Command returns the "workspace" command group.
func Command(env Environment) *cli.Command {
	return &cli.Command{
		Name:    "workspace",
		Summary: "Inspect and change the workspaces of a jj repository",
		Description: `Inspect and change the workspaces of a jj repository.

A repository with a single workspace keeps it at the project root. The
first added workspace scoops the project into <root>/<name>, and every
further workspace lives beside it. Forgetting down to the default
workspace moves it back to the root.`,
		Subcommands: []*cli.Command{
			listCommand(env),
			addCommand(env),
			forgetCommand(env),
			renameCommand(env),
			checkCommand(env),
			updateStaleCommand(env),
			rootCommand(env),
		},
	}
}

// withSession opens a session for flags, runs fn, and closes the
// session. Errors are classified for the exit path.
func withSession(ctx context.Context, env Environment, flags SessionFlags, logger *slog.Logger, fn func(*session.Session) error) error {
	s, err := env.Open(ctx, flags, logger)
	if err != nil {
		return cli.Classify(err)
	}
	defer s.Close()
	return cli.Classify(fn(s))
}
