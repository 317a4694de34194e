package converge_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"netboxup/internal/converge"
)

// fakeRunner records invocations and serves canned output per command name.
type fakeRunner struct {
	output map[string]string
	fail   map[string]bool
	calls  []string
}

func (f *fakeRunner) Run(_ context.Context, cmd converge.Command) ([]byte, error) {
	f.calls = append(f.calls, cmd.Name)
	if f.fail[cmd.Name] {
		return nil, &converge.CommandError{Name: cmd.Name, ExitCode: 1, Output: "boom"}
	}
	return []byte(f.output[cmd.Name]), nil
}

func TestGuardHolds(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   bool
	}{
		{"marker present", "app\n [ ] 0002_site\n", true},
		{"marker absent", "app\n [X] 0002_site\n", false},
		{"empty output", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &fakeRunner{output: map[string]string{"probe": tc.output}}
			got, err := converge.GuardHolds(context.Background(), r, converge.Command{Name: "probe"}, "[ ]")
			if err != nil {
				t.Fatalf("GuardHolds() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("GuardHolds() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRunGuarded_RunsOnlyWhenGuardHolds(t *testing.T) {
	r := &fakeRunner{output: map[string]string{"probe": " [ ] pending"}}
	guard, out, err := converge.RunGuarded(context.Background(), r,
		converge.Command{Name: "probe"}, "[ ]", converge.Command{Name: "action"})
	if err != nil {
		t.Fatalf("RunGuarded() error = %v", err)
	}
	if !guard || out != converge.Ran {
		t.Fatalf("RunGuarded() = (%v, %v), want (true, Ran)", guard, out)
	}
	if !slices.Equal(r.calls, []string{"probe", "action"}) {
		t.Fatalf("calls = %v", r.calls)
	}
}

func TestRunGuarded_SkipsWhenGuardFalse(t *testing.T) {
	r := &fakeRunner{output: map[string]string{"probe": "all applied"}}
	guard, out, err := converge.RunGuarded(context.Background(), r,
		converge.Command{Name: "probe"}, "[ ]", converge.Command{Name: "action"})
	if err != nil {
		t.Fatalf("RunGuarded() error = %v", err)
	}
	if guard || out != converge.Skipped {
		t.Fatalf("RunGuarded() = (%v, %v), want (false, Skipped)", guard, out)
	}
	if !slices.Equal(r.calls, []string{"probe"}) {
		t.Fatalf("calls = %v, action must not run", r.calls)
	}
}

func TestRunGuarded_ProbeFailureIsFatal(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"probe": true}}
	guard, _, err := converge.RunGuarded(context.Background(), r,
		converge.Command{Name: "probe"}, "[ ]", converge.Command{Name: "action"})
	if err == nil {
		t.Fatal("RunGuarded() error = nil, want probe failure")
	}
	if guard {
		t.Fatal("guard = true after probe failure, want false")
	}
}

func TestRunGuarded_ActionFailureReportsGuardTrue(t *testing.T) {
	r := &fakeRunner{
		output: map[string]string{"probe": "[ ] pending"},
		fail:   map[string]bool{"action": true},
	}
	guard, _, err := converge.RunGuarded(context.Background(), r,
		converge.Command{Name: "probe"}, "[ ]", converge.Command{Name: "action"})
	if err == nil {
		t.Fatal("RunGuarded() error = nil, want action failure")
	}
	if !guard {
		t.Fatal("guard = false after action failure, want true")
	}
}

func TestRunIfTriggered(t *testing.T) {
	r := &fakeRunner{}
	out, err := converge.RunIfTriggered(context.Background(), r, false, converge.Command{Name: "action"})
	if err != nil || out != converge.Skipped {
		t.Fatalf("RunIfTriggered(false) = (%v, %v), want (Skipped, nil)", out, err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("calls = %v, want none", r.calls)
	}

	out, err = converge.RunIfTriggered(context.Background(), r, true, converge.Command{Name: "action"})
	if err != nil || out != converge.Ran {
		t.Fatalf("RunIfTriggered(true) = (%v, %v), want (Ran, nil)", out, err)
	}
}

func TestExecContext_Env(t *testing.T) {
	ec := converge.ExecContext{WorkDir: "/opt/netbox/netbox", VenvDir: "/opt/netbox/venv"}
	env := ec.Env()

	if !slices.Contains(env, "VIRTUAL_ENV=/opt/netbox/venv") {
		t.Fatalf("env = %v, missing VIRTUAL_ENV", env)
	}
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = e
		}
	}
	if !strings.HasPrefix(path, "PATH=/opt/netbox/venv/bin:") {
		t.Fatalf("PATH = %q, want venv bin first", path)
	}

	cmd := ec.Command("migrate", "python3", "manage.py", "migrate")
	if cmd.Dir != "/opt/netbox/netbox" {
		t.Fatalf("Command.Dir = %q", cmd.Dir)
	}
}

func TestExecRunner_ExitStatus(t *testing.T) {
	r := converge.ExecRunner{}

	out, err := r.Run(context.Background(), converge.Command{
		Name: "echo",
		Argv: []string{"/bin/sh", "-c", "echo hello"},
	})
	if err != nil {
		t.Fatalf("Run(echo) error = %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Fatalf("Run(echo) output = %q", out)
	}

	_, err = r.Run(context.Background(), converge.Command{
		Name: "fail",
		Argv: []string{"/bin/sh", "-c", "echo broken; exit 3"},
	})
	var cerr *converge.CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run(fail) error = %v, want CommandError", err)
	}
	if cerr.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", cerr.ExitCode)
	}
	if !strings.Contains(cerr.Output, "broken") {
		t.Fatalf("Output = %q, want captured output", cerr.Output)
	}
}

func TestExecRunner_EmptyArgv(t *testing.T) {
	_, err := converge.ExecRunner{}.Run(context.Background(), converge.Command{Name: "empty"})
	var cerr *converge.CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run() error = %v, want CommandError", err)
	}
}
