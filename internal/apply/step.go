package apply

import "fmt"

// Step identifies one stage of the apply sequence.
type Step string

const (
	StepRender         Step = "render"
	StepGunicornConfig Step = "gunicorn_config"
	StepSettingsConfig Step = "settings_config"
	StepMigrationCheck Step = "migration_check"
	StepMigrate        Step = "migrate"
	StepCollectStatic  Step = "collectstatic"
)

// Status is the terminal state of an apply run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// StepError attributes a failure to the step where it happened. The apply
// sequence stops at the first StepError; nothing after the failed step runs.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func failed(step Step, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

// Result summarizes one apply run.
type Result struct {
	Status           Status
	FailedStep       Step // empty unless Status is StatusFailed
	GunicornChanged  bool
	SettingsChanged  bool
	MigrationPending bool
	Migrated         bool
	StaticCollected  bool
}

// Plan is the read-only preview of what an apply run would do right now.
type Plan struct {
	GunicornChange     bool
	SettingsChange     bool
	MigrationPending   bool
	WouldCollectStatic bool
}
