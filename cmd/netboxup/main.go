package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applycmd "netboxup/cmd/netboxup/apply"
	checkcmd "netboxup/cmd/netboxup/check"
	historycmd "netboxup/cmd/netboxup/history"
	plancmd "netboxup/cmd/netboxup/plan"
	rendercmd "netboxup/cmd/netboxup/render"
	"netboxup/cmd/netboxup/ui"
	"netboxup/internal/buildinfo"
	"netboxup/internal/logging"
)

func main() {
	var (
		debug   bool
		noColor bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "netboxup",
		Short:         "Converge NetBox configuration files and follow-up actions",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureColor(noColor)
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")

	root.AddCommand(applycmd.Cmd())
	root.AddCommand(plancmd.Cmd())
	root.AddCommand(rendercmd.Cmd())
	root.AddCommand(checkcmd.Cmd())
	root.AddCommand(historycmd.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
