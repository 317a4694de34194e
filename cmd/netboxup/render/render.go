// Package rendercmd implements "netboxup render".
package rendercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"netboxup/cmd/netboxup/cmdutil"
	"netboxup/internal/render"
)

// Cmd returns the "netboxup render" command. It prints a rendered template
// to stdout so operators can inspect what apply would write.
func Cmd() *cobra.Command {
	var flags cmdutil.Flags

	cmd := &cobra.Command{
		Use:       "render {gunicorn|settings}",
		Short:     "Print a rendered config file to stdout",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{render.TemplateGunicorn, render.TemplateSettings},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.Load()
			if err != nil {
				return err
			}

			var text string
			switch args[0] {
			case render.TemplateGunicorn:
				text, err = render.Gunicorn(p)
			case render.TemplateSettings:
				text, err = render.Settings(p)
			default:
				return fmt.Errorf("unknown template %q", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	flags.Bind(cmd)
	return cmd
}
