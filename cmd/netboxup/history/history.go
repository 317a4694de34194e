// Package historycmd implements "netboxup history".
package historycmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"netboxup/cmd/netboxup/cmdutil"
	"netboxup/cmd/netboxup/ui"
	"netboxup/internal/journal"
)

// Cmd returns the "netboxup history" command.
func Cmd() *cobra.Command {
	var (
		flags cmdutil.Flags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded apply runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := journal.Open(flags.JournalPath())
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			runs, err := j.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("no runs recorded"))
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				status := ui.Success(r.Status)
				if r.Status != "done" {
					status = ui.ErrorStyle.Render(r.Status + " @ " + r.FailedStep)
				}
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10),
					r.StartedAt.Local().Format(time.DateTime),
					status,
					boolMark(r.SettingsChanged),
					boolMark(r.GunicornChanged),
					boolMark(r.Migrated),
					boolMark(r.StaticCollected),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table(
				[]string{"ID", "STARTED", "STATUS", "SETTINGS", "GUNICORN", "MIGRATED", "STATIC"},
				rows,
			))
			return nil
		},
	}
	flags.Bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func boolMark(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
