package converge

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command describes one external invocation.
type Command struct {
	Name string // short label used in errors and logs
	Argv []string
	Dir  string
	Env  []string
}

// Runner executes commands. ExecRunner is the real implementation; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// CommandError is a command that ran and exited non-zero, or failed to start.
type CommandError struct {
	Name     string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("command %s: exit status %d", e.Name, e.ExitCode)
	}
	return fmt.Sprintf("command %s: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands via os/exec, blocking until completion.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	if len(cmd.Argv) == 0 {
		return nil, &CommandError{Name: cmd.Name, Err: errors.New("empty argv")}
	}
	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	out, err := c.CombinedOutput()
	if err != nil {
		cerr := &CommandError{Name: cmd.Name, Output: string(out), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return out, cerr
	}
	return out, nil
}

// Outcome reports whether a convergence action actually ran.
type Outcome int

const (
	Skipped Outcome = iota
	Ran
)

func (o Outcome) String() string {
	if o == Ran {
		return "ran"
	}
	return "skipped"
}

// GuardHolds evaluates a guard predicate: it runs the read-only probe and
// reports whether its output contains marker. A probe failure is fatal
// because the guard cannot be evaluated.
func GuardHolds(ctx context.Context, r Runner, probe Command, marker string) (bool, error) {
	out, err := r.Run(ctx, probe)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), marker), nil
}

// RunGuarded runs probe first and runs action only when the probe output
// contains marker. The returned guard flag is valid even on error, so
// callers can tell a probe failure (guard false) from an action failure
// (guard true).
func RunGuarded(ctx context.Context, r Runner, probe Command, marker string, action Command) (guard bool, out Outcome, err error) {
	guard, err = GuardHolds(ctx, r, probe, marker)
	if err != nil || !guard {
		return guard, Skipped, err
	}
	if _, err := r.Run(ctx, action); err != nil {
		return true, Skipped, err
	}
	return true, Ran, nil
}

// RunIfTriggered runs action only when an upstream convergence reported a
// change in this same run.
func RunIfTriggered(ctx context.Context, r Runner, changed bool, action Command) (Outcome, error) {
	if !changed {
		return Skipped, nil
	}
	if _, err := r.Run(ctx, action); err != nil {
		return Skipped, err
	}
	return Ran, nil
}

// ExecContext pins down where management commands run: working directory,
// a restricted executable search path, and the active virtualenv.
type ExecContext struct {
	WorkDir string
	VenvDir string
}

// Env returns the restricted environment for commands in this context.
func (c ExecContext) Env() []string {
	return []string{
		"PATH=" + c.VenvDir + "/bin:/usr/bin:/bin",
		"VIRTUAL_ENV=" + c.VenvDir,
	}
}

// Command builds a Command bound to this execution context.
func (c ExecContext) Command(name string, argv ...string) Command {
	return Command{Name: name, Argv: argv, Dir: c.WorkDir, Env: c.Env()}
}
