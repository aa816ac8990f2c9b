// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/dagfront/dagfront/cmd/dagfront/cli"
	"github.com/dagfront/dagfront/lib/session"
	"github.com/dagfront/dagfront/lib/workspace"
)

// listResult is the --json shape of "workspace list".
type listResult struct {
	ProjectRoot string                `json:"project_root"`
	Layout      workspace.Layout      `json:"layout"`
	Attached    string                `json:"attached"`
	Workspaces  []workspace.Workspace `json:"workspaces"`
}

func listCommand(env Environment) *cli.Command {
	var flags SessionFlags
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "list",
		Summary: "List workspaces and the current layout",
		Usage:   "dagfront workspace list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.add(flagSet)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			return withSession(ctx, env, flags, logger, func(s *session.Session) error {
				snapshot := s.Snapshot()
				result := listResult{
					ProjectRoot: snapshot.ProjectRoot,
					Layout:      snapshot.Layout,
					Attached:    s.Attached(),
					Workspaces:  snapshot.Workspaces,
				}
				if done, err := output.EmitJSON(env.Stdout, result); done {
					return err
				}
				return writeList(env, result)
			})
		},
	}
}

func writeList(env Environment, result listResult) error {
	fmt.Fprintf(env.Stdout, "%s (%s)\n", result.ProjectRoot, result.Layout)
	tw := tabwriter.NewWriter(env.Stdout, 2, 0, 2, ' ', 0)
	for _, entry := range result.Workspaces {
		current := " "
		if entry.Path == result.Attached {
			current = "*"
		}
		var markers []string
		if entry.IsDefault {
			markers = append(markers, "default")
		}
		if entry.IsScooped {
			markers = append(markers, "scooped")
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", current, entry.Name, entry.Path, strings.Join(markers, ","))
	}
	return tw.Flush()
}
