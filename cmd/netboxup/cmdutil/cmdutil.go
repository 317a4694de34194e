// Package cmdutil holds the flags and loading helpers shared by subcommands.
package cmdutil

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"netboxup/config"
	"netboxup/internal/params"
)

// Flags are the inputs every convergence-related subcommand needs.
type Flags struct {
	Params  string
	DataDir string
}

// Bind registers the shared flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Params, "params", config.DefaultPath, "Parameter file (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&f.DataDir, "data-dir", config.DefaultDataDir, "Directory for the run journal")
}

// Load reads and validates the parameter file.
func (f *Flags) Load() (params.ParameterSet, error) {
	return config.Load(f.Params)
}

// JournalPath is the journal database location under the data dir.
func (f *Flags) JournalPath() string {
	return filepath.Join(f.DataDir, "journal.db")
}
