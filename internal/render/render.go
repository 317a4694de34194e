// Package render produces the text of the managed configuration files.
//
// Rendering is deterministic: the same template and variables always yield
// byte-identical output. Referencing a variable that is absent from the map
// is a RenderError, not a silent default.
package render

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"netboxup/internal/params"
)

// Template identifiers accepted by Render.
const (
	TemplateGunicorn = "gunicorn"
	TemplateSettings = "settings"
)

// RenderError reports a failed render: unknown template, missing variable,
// or a value that cannot be expressed as a Python literal.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

var templates = map[string]*template.Template{}

func init() {
	for id, text := range map[string]string{
		TemplateGunicorn: gunicornTemplate,
		TemplateSettings: settingsTemplate,
	} {
		templates[id] = template.Must(template.New(id).
			Option("missingkey=error").
			Funcs(template.FuncMap{"py": pyLiteral}).
			Parse(text))
	}
}

// Render executes the named template against vars.
func Render(id string, vars map[string]any) (string, error) {
	tpl, ok := templates[id]
	if !ok {
		return "", &RenderError{Template: id, Err: fmt.Errorf("unknown template %q", id)}
	}
	var b strings.Builder
	if err := tpl.Execute(&b, vars); err != nil {
		return "", &RenderError{Template: id, Err: err}
	}
	return b.String(), nil
}

// Gunicorn renders the process-manager config for the given parameters.
func Gunicorn(p params.ParameterSet) (string, error) {
	return Render(TemplateGunicorn, GunicornVars(p))
}

// Settings renders the NetBox configuration.py for the given parameters.
func Settings(p params.ParameterSet) (string, error) {
	return Render(TemplateSettings, SettingsVars(p))
}

// GunicornVars maps the parameter set onto the gunicorn template variables.
func GunicornVars(p params.ParameterSet) map[string]any {
	g := p.Gunicorn
	return map[string]any{
		"port":                g.Port,
		"workers":             g.Workers,
		"threads":             g.Threads,
		"timeout":             g.TimeoutSeconds,
		"max_requests":        g.MaxRequests,
		"max_requests_jitter": g.MaxRequestsJitter,
	}
}

// SettingsVars maps the parameter set onto the settings template variables.
func SettingsVars(p params.ParameterSet) map[string]any {
	admins := make([]params.Admin, len(p.Admins))
	copy(admins, p.Admins)
	return map[string]any{
		"allowed_hosts":           p.AllowedHosts,
		"database_name":           p.Database.Name,
		"database_user":           p.Database.User,
		"database_password":       p.Database.Password,
		"database_host":           p.Database.Host,
		"database_port":           p.Database.Port,
		"database_conn_max_age":   p.Database.ConnMaxAge,
		"redis":                   p.Redis,
		"email":                   p.Email,
		"secret_key":              p.SecretKey,
		"admins":                  admins,
		"banner_top":              p.BannerTop,
		"banner_bottom":           p.BannerBottom,
		"banner_login":            p.BannerLogin,
		"base_path":               p.BasePath,
		"debug":                   p.Debug,
		"enforce_global_unique":   p.EnforceGlobalUnique,
		"exempt_view_permissions": p.ExemptViewPermissions,
		"login_required":          p.LoginRequired,
	}
}

// pyLiteral renders a Go value as a Python literal. Maps render with sorted
// keys so output stays byte-stable across runs.
func pyLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "None", nil
	case string:
		return pyString(x), nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float32, float64:
		return fmt.Sprint(x), nil
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = pyString(s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			lit, err := pyLiteral(e)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case []params.Admin:
		parts := make([]string, len(x))
		for i, a := range x {
			parts[i] = "(" + pyString(a.Name) + ", " + pyString(a.Email) + ")"
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			lit, err := pyLiteral(x[k])
			if err != nil {
				return "", err
			}
			parts[i] = pyString(k) + ": " + lit
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("cannot express %T as a Python literal", v)
	}
}

func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
