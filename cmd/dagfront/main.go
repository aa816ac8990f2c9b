// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	workspacecmd "github.com/dagfront/dagfront/cmd/dagfront/workspace"
	"github.com/dagfront/dagfront/lib/version"
)

func main() {
	if err := run(); err != nil {
		// "workspace check" prints its own findings and only sets the
		// exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCommand(os.Stdout).Execute(ctx, os.Args[1:])
}

// rootCommand builds the complete command tree.
func rootCommand(stdout io.Writer) *cli.Command {
	var flags tuiFlags
	env := workspacecmd.DefaultEnvironment()
	env.Stdout = stdout

	return &cli.Command{
		Name: "dagfront",
		Description: `dagfront: a workspace panel for jj repositories.

Without a subcommand, opens the interactive panel for the workspace
containing the current directory (or --repository).`,
		Usage: "dagfront [flags] | dagfront <command> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dagfront", pflag.ContinueOnError)
			flags.add(flagSet)
			return flagSet
		},
		Subcommands: []*cli.Command{
			workspacecmd.Command(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) != 0 {
						return cli.Validation("unexpected argument %q", args[0])
					}
					fmt.Fprintf(stdout, "dagfront %s\n", version.Full())
					return nil
				},
			},
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return runPanel(ctx, flags)
		},
	}
}
