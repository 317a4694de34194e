// Package apply runs the fixed convergence sequence: render both configs,
// converge each file, run the database migration when the guard holds, and
// recollect static assets when the settings file changed.
//
// Every step re-evaluates current state, so a run interrupted anywhere can be
// re-invoked from scratch and converges without duplicate side effects.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"netboxup/internal/check"
	"netboxup/internal/converge"
	"netboxup/internal/params"
	"netboxup/internal/render"
)

// UnappliedMarker is the token Django's showmigrations prints next to each
// migration that has not been applied yet.
const UnappliedMarker = "[ ]"

const managedFileMode = 0o644

// Engine drives one apply or plan run for a fixed parameter set.
type Engine struct {
	params params.ParameterSet
	runner converge.Runner
	marker string
	tracer trace.Tracer
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithMarker overrides the unapplied-migration token the guard looks for.
func WithMarker(marker string) Option {
	return func(e *Engine) { e.marker = marker }
}

// New builds an engine. runner executes all external commands, including the
// settings syntax check.
func New(p params.ParameterSet, runner converge.Runner, opts ...Option) *Engine {
	check.Assert(runner != nil, "apply.New: runner must not be nil")

	e := &Engine{
		params: p,
		runner: runner,
		marker: UnappliedMarker,
		tracer: otel.Tracer("netboxup/apply"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the full sequence. On failure the returned Result names the
// failed step and the error is a *StepError; everything before the failed
// step has converged, nothing after it ran.
func (e *Engine) Apply(ctx context.Context) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "apply")
	defer span.End()

	res := Result{Status: StatusFailed}
	fail := func(step Step, err error) (Result, error) {
		serr := failed(step, err)
		res.FailedStep = step
		span.RecordError(serr)
		span.SetStatus(codes.Error, string(step))
		return res, serr
	}

	if len(e.params.SecretKey) < params.RecommendedSecretKeyLength {
		slog.Warn("secret key is shorter than recommended",
			"length", len(e.params.SecretKey),
			"recommended", params.RecommendedSecretKeyLength)
	}

	gunicorn, settings, err := e.renderConfigs(ctx)
	if err != nil {
		return fail(StepRender, err)
	}

	res.GunicornChanged, err = e.convergeFile(ctx, StepGunicornConfig, e.gunicornState(gunicorn), nil)
	if err != nil {
		return fail(StepGunicornConfig, err)
	}
	res.SettingsChanged, err = e.convergeFile(ctx, StepSettingsConfig, e.settingsState(settings), e.settingsCheck())
	if err != nil {
		return fail(StepSettingsConfig, err)
	}

	mctx, mspan := e.tracer.Start(ctx, "migration")
	pending, out, err := converge.RunGuarded(mctx, e.runner, e.showMigrationsCommand(), e.marker, e.migrateCommand())
	mspan.End()
	res.MigrationPending = pending
	if err != nil {
		if pending {
			return fail(StepMigrate, err)
		}
		return fail(StepMigrationCheck, err)
	}
	res.Migrated = out == converge.Ran
	if res.Migrated {
		slog.Info("applied pending database migrations")
	} else {
		slog.Debug("no pending migrations, skipping migrate")
	}

	// Static collection is deliberately coupled to the settings-file change,
	// not to migration success.
	sctx, sspan := e.tracer.Start(ctx, string(StepCollectStatic))
	out, err = converge.RunIfTriggered(sctx, e.runner, res.SettingsChanged, e.collectStaticCommand())
	sspan.End()
	if err != nil {
		return fail(StepCollectStatic, err)
	}
	res.StaticCollected = out == converge.Ran
	if res.StaticCollected {
		slog.Info("recollected static assets")
	}

	res.Status = StatusDone
	return res, nil
}

// Plan previews the run: which files would change and whether the migration
// guard currently holds. It performs no writes and no mutating commands.
func (e *Engine) Plan(ctx context.Context) (Plan, error) {
	ctx, span := e.tracer.Start(ctx, "plan")
	defer span.End()

	gunicorn, settings, err := e.renderConfigs(ctx)
	if err != nil {
		return Plan{}, failed(StepRender, err)
	}

	var p Plan
	if p.GunicornChange, err = converge.FileDiff(e.gunicornState(gunicorn)); err != nil {
		return Plan{}, failed(StepGunicornConfig, err)
	}
	if p.SettingsChange, err = converge.FileDiff(e.settingsState(settings)); err != nil {
		return Plan{}, failed(StepSettingsConfig, err)
	}
	if p.MigrationPending, err = converge.GuardHolds(ctx, e.runner, e.showMigrationsCommand(), e.marker); err != nil {
		return Plan{}, failed(StepMigrationCheck, err)
	}
	p.WouldCollectStatic = p.SettingsChange
	return p, nil
}

func (e *Engine) renderConfigs(ctx context.Context) (gunicorn, settings string, err error) {
	_, span := e.tracer.Start(ctx, string(StepRender))
	defer span.End()

	if gunicorn, err = render.Gunicorn(e.params); err != nil {
		return "", "", err
	}
	if settings, err = render.Settings(e.params); err != nil {
		return "", "", err
	}
	return gunicorn, settings, nil
}

func (e *Engine) convergeFile(ctx context.Context, step Step, st converge.FileState, syntaxCheck converge.SyntaxCheck) (bool, error) {
	ctx, span := e.tracer.Start(ctx, string(step))
	defer span.End()

	result, err := converge.File(ctx, st, syntaxCheck)
	if err != nil {
		return false, err
	}
	slog.Debug("converged managed file", "path", st.Path, "result", result.String())
	return result == converge.Changed, nil
}

func (e *Engine) gunicornState(content string) converge.FileState {
	return converge.FileState{
		Path:    e.params.GunicornConfigPath(),
		Content: []byte(content),
		Owner:   e.params.User,
		Group:   e.params.Group,
		Mode:    managedFileMode,
	}
}

func (e *Engine) settingsState(content string) converge.FileState {
	return converge.FileState{
		Path:    e.params.SettingsPath(),
		Content: []byte(content),
		Owner:   e.params.User,
		Group:   e.params.Group,
		Mode:    managedFileMode,
	}
}

// settingsCheck compiles the candidate settings file inside the app's
// virtualenv. A file that does not parse never reaches the target path.
func (e *Engine) settingsCheck() converge.SyntaxCheck {
	ec := e.execContext()
	python := e.pythonPath()
	return func(ctx context.Context, path string) error {
		cmd := ec.Command("settings-syntax-check", python, "-m", "py_compile", path)
		if _, err := e.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("py_compile: %w", err)
		}
		return nil
	}
}

func (e *Engine) showMigrationsCommand() converge.Command {
	return e.execContext().Command("showmigrations", e.pythonPath(), "manage.py", "showmigrations")
}

func (e *Engine) migrateCommand() converge.Command {
	return e.execContext().Command("migrate", e.pythonPath(), "manage.py", "migrate", "--no-input")
}

func (e *Engine) collectStaticCommand() converge.Command {
	return e.execContext().Command("collectstatic", e.pythonPath(), "manage.py", "collectstatic", "--no-input")
}

func (e *Engine) execContext() converge.ExecContext {
	return converge.ExecContext{
		WorkDir: e.params.AppDir(),
		VenvDir: e.params.VenvDir(),
	}
}

func (e *Engine) pythonPath() string {
	return filepath.Join(e.params.VenvDir(), "bin", "python3")
}
