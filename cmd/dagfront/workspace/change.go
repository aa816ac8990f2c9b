// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/session"
	"github.com/dagfront/dagfront/lib/topology"
)

// changeCommand builds a command that turns its positional arguments
// into an intent and previews or executes it.
func changeCommand(env Environment, command cli.Command, arity int, intent func(args []string) topology.Intent) *cli.Command {
	var flags SessionFlags
	var dryRun bool
	command.Flags = func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(command.Name, pflag.ContinueOnError)
		flags.add(flagSet)
		flagSet.BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")
		return flagSet
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if len(args) != arity {
			return cli.Validation("expected %d argument(s), got %d\n\nUsage: %s", arity, len(args), command.Usage)
		}
		requested := intent(args)
		return withSession(ctx, env, flags, logger, func(s *session.Session) error {
			if dryRun {
				return preview(ctx, env, s, requested)
			}
			return execute(ctx, env, s, logger, requested)
		})
	}
	return &command
}

func preview(ctx context.Context, env Environment, s *session.Session, intent topology.Intent) error {
	plan, err := s.Preview(ctx, intent)
	if plan != nil {
		fmt.Fprintln(env.Stdout, plan)
	}
	if err != nil {
		return fmt.Errorf("plan would be refused: %w", err)
	}
	return nil
}

func execute(ctx context.Context, env Environment, s *session.Session, logger *slog.Logger, intent topology.Intent) error {
	report, err := s.Execute(ctx, intent)
	if err != nil {
		var planError *topology.PlanError
		if errors.As(err, &planError) {
			for _, line := range pipeline.Lines(planError.Transcript) {
				logger.Info("jj output", "line", line)
			}
			for _, warning := range planError.Warnings {
				logger.Warn("rollback warning", "warning", warning)
			}
		}
		return err
	}

	fmt.Fprintln(env.Stdout, report.Plan)
	for _, warning := range report.Warnings {
		fmt.Fprintf(env.Stdout, "warning: %s\n", warning)
	}
	if len(report.After.Workspaces) > 0 {
		fmt.Fprintf(env.Stdout, "layout: %s, %d workspace(s) under %s\n",
			report.After.Layout, len(report.After.Workspaces), report.After.ProjectRoot)
	}
	return nil
}

func addCommand(env Environment) *cli.Command {
	return changeCommand(env, cli.Command{
		Name:    "add",
		Summary: "Add a workspace, scooping the project first if needed",
		Usage:   "dagfront workspace add NAME [flags]",
		Examples: []cli.Example{
			{Description: "Show what adding a workspace would do", Command: "dagfront workspace add feature --dry-run"},
			{Command: "dagfront workspace add feature"},
		},
	}, 1, func(args []string) topology.Intent {
		return topology.AddWorkspace{Name: args[0]}
	})
}

func forgetCommand(env Environment) *cli.Command {
	return changeCommand(env, cli.Command{
		Name:    "forget",
		Summary: "Forget a workspace and archive its directory",
		Usage:   "dagfront workspace forget NAME [flags]",
		Description: `Forget a workspace and move its directory into the archive.

When only the default workspace remains afterwards, it is moved back
to the project root.`,
	}, 1, func(args []string) topology.Intent {
		return topology.ForgetWorkspace{Name: args[0]}
	})
}

func renameCommand(env Environment) *cli.Command {
	return changeCommand(env, cli.Command{
		Name:    "rename",
		Summary: "Rename a workspace and its directory",
		Usage:   "dagfront workspace rename FROM TO [flags]",
	}, 2, func(args []string) topology.Intent {
		return topology.RenameWorkspace{From: args[0], To: args[1]}
	})
}
