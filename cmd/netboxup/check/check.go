// Package checkcmd implements "netboxup check".
package checkcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"netboxup/cmd/netboxup/cmdutil"
	"netboxup/cmd/netboxup/ui"
	"netboxup/internal/params"
	"netboxup/internal/render"
)

// Cmd returns the "netboxup check" command. It validates the parameter file
// and renders both templates in memory; nothing on disk is touched.
func Cmd() *cobra.Command {
	var flags cmdutil.Flags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the parameter file and both templates without applying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.Load()
			if err != nil {
				return err
			}
			if _, err := render.Gunicorn(p); err != nil {
				return err
			}
			if _, err := render.Settings(p); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.SuccessMsg("parameters valid, both templates render"))
			if len(p.SecretKey) < params.RecommendedSecretKeyLength {
				fmt.Fprintln(out, ui.Warn(fmt.Sprintf("secret_key is %d characters; at least %d recommended",
					len(p.SecretKey), params.RecommendedSecretKeyLength)))
			}
			return nil
		},
	}
	flags.Bind(cmd)
	return cmd
}
