// Package applycmd implements "netboxup apply".
package applycmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"netboxup/cmd/netboxup/cmdutil"
	"netboxup/cmd/netboxup/ui"
	"netboxup/internal/apply"
	"netboxup/internal/converge"
	"netboxup/internal/journal"
	"netboxup/internal/tracing"
)

// Cmd returns the "netboxup apply" command.
func Cmd() *cobra.Command {
	var (
		flags     cmdutil.Flags
		traceFile string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge both config files, then migrate and collect static assets as needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.Load()
			if err != nil {
				return err
			}

			if traceFile != "" {
				shutdown, err := tracing.Setup(traceFile)
				if err != nil {
					return err
				}
				defer func() {
					if err := shutdown(cmd.Context()); err != nil {
						slog.Warn("trace shutdown failed", "error", err)
					}
				}()
			}

			engine := apply.New(p, converge.ExecRunner{})
			started := time.Now()
			res, applyErr := engine.Apply(cmd.Context())
			finished := time.Now()

			recordRun(flags.JournalPath(), started, finished, res, applyErr)
			printResult(cmd, res)
			return applyErr
		},
	}
	flags.Bind(cmd)
	cmd.Flags().StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")
	return cmd
}

// recordRun appends to the journal. Journal trouble must not mask the apply
// outcome, so it only warns.
func recordRun(path string, started, finished time.Time, res apply.Result, applyErr error) {
	j, err := journal.Open(path)
	if err != nil {
		slog.Warn("journal unavailable", "error", err)
		return
	}
	defer func() { _ = j.Close() }()

	run := journal.Run{
		StartedAt:        started,
		FinishedAt:       finished,
		Status:           string(res.Status),
		FailedStep:       string(res.FailedStep),
		GunicornChanged:  res.GunicornChanged,
		SettingsChanged:  res.SettingsChanged,
		MigrationPending: res.MigrationPending,
		Migrated:         res.Migrated,
		StaticCollected:  res.StaticCollected,
	}
	if applyErr != nil {
		run.Error = applyErr.Error()
	}
	if err := j.Record(run); err != nil {
		slog.Warn("journal write failed", "error", err)
	}
}

func printResult(cmd *cobra.Command, res apply.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, ui.StepLine(string(apply.StepGunicornConfig), changedLabel(res.GunicornChanged), res.GunicornChanged))
	fmt.Fprintln(out, ui.StepLine(string(apply.StepSettingsConfig), changedLabel(res.SettingsChanged), res.SettingsChanged))
	fmt.Fprintln(out, ui.StepLine(string(apply.StepMigrate), ranLabel(res.Migrated), res.Migrated))
	fmt.Fprintln(out, ui.StepLine(string(apply.StepCollectStatic), ranLabel(res.StaticCollected), res.StaticCollected))

	if res.Status == apply.StatusDone {
		fmt.Fprintln(out, ui.SuccessMsg("apply complete"))
		return
	}
	fmt.Fprintln(out, ui.ErrorMsg("apply failed at step %s", res.FailedStep))
}

func changedLabel(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}

func ranLabel(ran bool) string {
	if ran {
		return "ran"
	}
	return "skipped"
}
