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

func checkCommand(env Environment) *cli.Command {
	var flags SessionFlags
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "check",
		Summary: "Compare jj's listing with the workspace store and the filesystem",
		Description: `Compare jj's workspace listing with the workspace store and the
filesystem. Mismatches are reported, never repaired. Exits 1 when any
are found.`,
		Usage: "dagfront workspace check [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flags.add(flagSet)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return withSession(ctx, env, flags, logger, func(s *session.Session) error {
				mismatches, err := s.Check(ctx)
				if err != nil {
					return err
				}
				if done, err := output.EmitJSON(env.Stdout, mismatches); done {
					if err != nil {
						return err
					}
				} else if len(mismatches) == 0 {
					fmt.Fprintf(env.Stdout, "%d workspace(s) consistent\n", len(s.Snapshot().Workspaces))
				} else {
					for _, mismatch := range mismatches {
						fmt.Fprintln(env.Stdout, mismatch)
					}
				}
				if len(mismatches) > 0 {
					return &cli.ExitError{Code: 1}
				}
				return nil
			})
		},
	}
}
