// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	"github.com/dagfront/dagfront/lib/session"
)

func updateStaleCommand(env Environment) *cli.Command {
	var flags SessionFlags
	return &cli.Command{
		Name:    "update-stale",
		Summary: "Update a stale working copy",
		Usage:   "dagfront workspace update-stale [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("update-stale", pflag.ContinueOnError)
			flags.add(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return withSession(ctx, env, flags, logger, func(s *session.Session) error {
				output, err := s.UpdateStale(ctx)
				if output != "" {
					fmt.Fprintln(env.Stdout, output)
				}
				return err
			})
		},
	}
}

func rootCommand(env Environment) *cli.Command {
	var flags SessionFlags
	return &cli.Command{
		Name:    "root",
		Summary: "Print the root of the current workspace",
		Usage:   "dagfront workspace root [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("root", pflag.ContinueOnError)
			flags.add(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return withSession(ctx, env, flags, logger, func(s *session.Session) error {
				root, err := s.Root(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(env.Stdout, root)
				return nil
			})
		},
	}
}
