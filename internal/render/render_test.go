package render_test

import (
	"errors"
	"strings"
	"testing"

	"netboxup/internal/params"
	"netboxup/internal/render"
)

func testParams(t *testing.T) params.ParameterSet {
	t.Helper()
	p, err := params.Validate(params.Raw{
		User:         "netbox",
		Group:        "netbox",
		InstallRoot:  "/opt",
		AllowedHosts: []string{"netbox.example.com"},
		Database: params.Database{
			Name: "netbox", User: "netbox", Password: "p'w", Host: "localhost", Port: 5432, ConnMaxAge: 300,
		},
		Redis: map[string]any{
			"tasks":   map[string]any{"host": "localhost", "port": 6379, "database": 0},
			"caching": map[string]any{"host": "localhost", "port": 6379, "database": 1},
		},
		Email:     map[string]any{"server": "mail.example.com", "port": 25},
		SecretKey: strings.Repeat("s", 50),
		Admins:    []params.Admin{{Name: "ops", Email: "ops@example.com"}},
		BannerTop: "maintenance tonight",
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return p
}

func TestRender_Deterministic(t *testing.T) {
	p := testParams(t)
	for _, id := range []string{render.TemplateGunicorn, render.TemplateSettings} {
		vars := render.SettingsVars(p)
		if id == render.TemplateGunicorn {
			vars = render.GunicornVars(p)
		}

		first, err := render.Render(id, vars)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", id, err)
		}
		second, err := render.Render(id, vars)
		if err != nil {
			t.Fatalf("Render(%s) second call error = %v", id, err)
		}
		if first != second {
			t.Fatalf("Render(%s) is not deterministic", id)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := render.Render("nginx", nil)
	var rerr *render.RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("Render() error = %v, want RenderError", err)
	}
}

func TestRender_MissingVariable(t *testing.T) {
	vars := render.GunicornVars(testParams(t))
	delete(vars, "workers")

	_, err := render.Render(render.TemplateGunicorn, vars)
	var rerr *render.RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("Render() error = %v, want RenderError for missing variable", err)
	}
}

func TestGunicorn_Defaults(t *testing.T) {
	text, err := render.Gunicorn(testParams(t))
	if err != nil {
		t.Fatalf("Gunicorn() error = %v", err)
	}

	for _, want := range []string{
		"port = 8001",
		"workers = 5",
		"threads = 3",
		"timeout = 120",
		"max_requests = 5000",
		"max_requests_jitter = 500",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("gunicorn config missing %q:\n%s", want, text)
		}
	}
}

func TestSettings_ContainsParameterFields(t *testing.T) {
	text, err := render.Settings(testParams(t))
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}

	for _, want := range []string{
		"ALLOWED_HOSTS = ['netbox.example.com']",
		"'NAME': 'netbox'",
		`'PASSWORD': 'p\'w'`,
		"'PORT': 5432",
		"'CONN_MAX_AGE': 300",
		"SECRET_KEY = '" + strings.Repeat("s", 50) + "'",
		"ADMINS = [('ops', 'ops@example.com')]",
		"BANNER_TOP = 'maintenance tonight'",
		"DEBUG = False",
		"ENFORCE_GLOBAL_UNIQUE = False",
		"LOGIN_REQUIRED = False",
		"EXEMPT_VIEW_PERMISSIONS = []",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("settings missing %q:\n%s", want, text)
		}
	}
}

func TestSettings_MapKeysSorted(t *testing.T) {
	text, err := render.Settings(testParams(t))
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	// Redis has two top-level keys; sorted order puts caching before tasks.
	caching := strings.Index(text, "'caching'")
	tasks := strings.Index(text, "'tasks'")
	if caching == -1 || tasks == -1 || caching > tasks {
		t.Fatalf("redis map not rendered in sorted key order:\n%s", text)
	}
}
