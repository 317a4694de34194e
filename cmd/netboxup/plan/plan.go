// Package plancmd implements "netboxup plan".
package plancmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"netboxup/cmd/netboxup/cmdutil"
	"netboxup/cmd/netboxup/ui"
	"netboxup/internal/apply"
	"netboxup/internal/converge"
)

// Cmd returns the "netboxup plan" command.
func Cmd() *cobra.Command {
	var flags cmdutil.Flags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.Load()
			if err != nil {
				return err
			}

			plan, err := apply.New(p, converge.ExecRunner{}).Plan(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValues("  ",
				ui.KV("gunicorn.py", wouldLabel(plan.GunicornChange, "rewrite")),
				ui.KV("configuration.py", wouldLabel(plan.SettingsChange, "rewrite")),
				ui.KV("migrate", wouldLabel(plan.MigrationPending, "run")),
				ui.KV("collectstatic", wouldLabel(plan.WouldCollectStatic, "run")),
			))
			return nil
		},
	}
	flags.Bind(cmd)
	return cmd
}

func wouldLabel(would bool, verb string) string {
	if would {
		return ui.Warn("would " + verb)
	}
	return ui.Muted("up to date")
}
