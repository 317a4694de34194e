// Package params defines the typed input record for one apply run.
//
// A Raw record comes straight from the parameter file decoder and is not
// trusted. Validate turns it into an immutable ParameterSet or reports the
// first invalid field. Nothing in this package touches the filesystem.
package params

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"
)

// Gunicorn holds the operational constants rendered into gunicorn.py.
type Gunicorn struct {
	Port              int `yaml:"port" toml:"port"`
	Workers           int `yaml:"workers" toml:"workers"`
	Threads           int `yaml:"threads" toml:"threads"`
	TimeoutSeconds    int `yaml:"timeout" toml:"timeout"`
	MaxRequests       int `yaml:"max_requests" toml:"max_requests"`
	MaxRequestsJitter int `yaml:"max_requests_jitter" toml:"max_requests_jitter"`
}

// DefaultGunicorn matches the upstream NetBox deployment defaults. Parameter
// files may override individual fields; zero values fall back to these.
var DefaultGunicorn = Gunicorn{
	Port:              8001,
	Workers:           5,
	Threads:           3,
	TimeoutSeconds:    120,
	MaxRequests:       5000,
	MaxRequestsJitter: 500,
}

// Database describes the PostgreSQL connection NetBox should use.
type Database struct {
	Name       string `yaml:"name" toml:"name"`
	User       string `yaml:"user" toml:"user"`
	Password   string `yaml:"password" toml:"password"`
	Host       string `yaml:"host" toml:"host"`
	Port       int    `yaml:"port" toml:"port"`
	ConnMaxAge int    `yaml:"conn_max_age" toml:"conn_max_age"`
}

// Admin is one administrator contact rendered into the ADMINS list.
type Admin struct {
	Name  string `yaml:"name" toml:"name"`
	Email string `yaml:"email" toml:"email"`
}

// Raw is the parameter file schema before validation. Field tags cover both
// supported file formats.
type Raw struct {
	User                  string         `yaml:"user" toml:"user"`
	Group                 string         `yaml:"group" toml:"group"`
	InstallRoot           string         `yaml:"install_root" toml:"install_root"`
	AllowedHosts          []string       `yaml:"allowed_hosts" toml:"allowed_hosts"`
	Database              Database       `yaml:"database" toml:"database"`
	Redis                 map[string]any `yaml:"redis" toml:"redis"`
	Email                 map[string]any `yaml:"email" toml:"email"`
	SecretKey             string         `yaml:"secret_key" toml:"secret_key"`
	Admins                []Admin        `yaml:"admins" toml:"admins"`
	BannerTop             string         `yaml:"banner_top" toml:"banner_top"`
	BannerBottom          string         `yaml:"banner_bottom" toml:"banner_bottom"`
	BannerLogin           string         `yaml:"banner_login" toml:"banner_login"`
	BasePath              string         `yaml:"base_path" toml:"base_path"`
	Debug                 bool           `yaml:"debug" toml:"debug"`
	EnforceGlobalUnique   bool           `yaml:"enforce_global_unique" toml:"enforce_global_unique"`
	LoginRequired         bool           `yaml:"login_required" toml:"login_required"`
	ExemptViewPermissions []string       `yaml:"exempt_view_permissions" toml:"exempt_view_permissions"`
	Gunicorn              *Gunicorn      `yaml:"gunicorn" toml:"gunicorn"`
}

// ParameterSet is a validated Raw. It is constructed once per run and never
// mutated afterwards.
type ParameterSet struct {
	User                  string
	Group                 string
	InstallRoot           string
	AllowedHosts          []string
	Database              Database
	Redis                 map[string]any
	Email                 map[string]any
	SecretKey             string
	Admins                []Admin
	BannerTop             string
	BannerBottom          string
	BannerLogin           string
	BasePath              string
	Debug                 bool
	EnforceGlobalUnique   bool
	LoginRequired         bool
	ExemptViewPermissions []string
	Gunicorn              Gunicorn
}

// RecommendedSecretKeyLength is advisory: shorter keys validate but callers
// should warn.
const RecommendedSecretKeyLength = 50

// ValidationError reports the first parameter that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks every invariant of the parameter record and returns an
// immutable ParameterSet. It is a pure function: no logging, no I/O.
func Validate(raw Raw) (ParameterSet, error) {
	if strings.TrimSpace(raw.User) == "" {
		return ParameterSet{}, invalid("user", "must not be empty")
	}
	if strings.TrimSpace(raw.Group) == "" {
		return ParameterSet{}, invalid("group", "must not be empty")
	}
	if !filepath.IsAbs(raw.InstallRoot) {
		return ParameterSet{}, invalid("install_root", fmt.Sprintf("%q is not an absolute path", raw.InstallRoot))
	}
	if len(raw.AllowedHosts) == 0 {
		return ParameterSet{}, invalid("allowed_hosts", "must list at least one host")
	}
	for _, h := range raw.AllowedHosts {
		if !validHost(h) {
			return ParameterSet{}, invalid("allowed_hosts", fmt.Sprintf("%q is not a valid hostname", h))
		}
	}
	if strings.TrimSpace(raw.Database.Name) == "" {
		return ParameterSet{}, invalid("database.name", "must not be empty")
	}
	if strings.TrimSpace(raw.Database.User) == "" {
		return ParameterSet{}, invalid("database.user", "must not be empty")
	}
	if raw.Database.Port < 0 || raw.Database.Port > 65535 {
		return ParameterSet{}, invalid("database.port", fmt.Sprintf("%d is out of range", raw.Database.Port))
	}
	if raw.Database.ConnMaxAge < 0 {
		return ParameterSet{}, invalid("database.conn_max_age", "must not be negative")
	}
	if raw.SecretKey == "" {
		return ParameterSet{}, invalid("secret_key", "must not be empty")
	}
	for i, a := range raw.Admins {
		if strings.TrimSpace(a.Name) == "" {
			return ParameterSet{}, invalid(fmt.Sprintf("admins[%d].name", i), "must not be empty")
		}
		if !strings.Contains(a.Email, "@") {
			return ParameterSet{}, invalid(fmt.Sprintf("admins[%d].email", i), fmt.Sprintf("%q is not an email address", a.Email))
		}
	}

	g := DefaultGunicorn
	if raw.Gunicorn != nil {
		g = mergeGunicorn(*raw.Gunicorn)
		if g.Port < 1 || g.Port > 65535 {
			return ParameterSet{}, invalid("gunicorn.port", fmt.Sprintf("%d is out of range", g.Port))
		}
		if g.Workers < 1 || g.Threads < 1 {
			return ParameterSet{}, invalid("gunicorn", "workers and threads must be positive")
		}
		if g.TimeoutSeconds < 0 || g.MaxRequests < 0 || g.MaxRequestsJitter < 0 {
			return ParameterSet{}, invalid("gunicorn", "timeouts and request limits must not be negative")
		}
	}

	db := raw.Database
	if db.Host == "" {
		db.Host = "localhost"
	}

	return ParameterSet{
		User:                  raw.User,
		Group:                 raw.Group,
		InstallRoot:           filepath.Clean(raw.InstallRoot),
		AllowedHosts:          append([]string(nil), raw.AllowedHosts...),
		Database:              db,
		Redis:                 raw.Redis,
		Email:                 raw.Email,
		SecretKey:             raw.SecretKey,
		Admins:                append([]Admin(nil), raw.Admins...),
		BannerTop:             raw.BannerTop,
		BannerBottom:          raw.BannerBottom,
		BannerLogin:           raw.BannerLogin,
		BasePath:              strings.Trim(raw.BasePath, "/"),
		Debug:                 raw.Debug,
		EnforceGlobalUnique:   raw.EnforceGlobalUnique,
		LoginRequired:         raw.LoginRequired,
		ExemptViewPermissions: append([]string(nil), raw.ExemptViewPermissions...),
		Gunicorn:              g,
	}, nil
}

// mergeGunicorn fills zero-valued override fields from the defaults so a
// parameter file can override a single knob.
func mergeGunicorn(o Gunicorn) Gunicorn {
	g := DefaultGunicorn
	if o.Port != 0 {
		g.Port = o.Port
	}
	if o.Workers != 0 {
		g.Workers = o.Workers
	}
	if o.Threads != 0 {
		g.Threads = o.Threads
	}
	if o.TimeoutSeconds != 0 {
		g.TimeoutSeconds = o.TimeoutSeconds
	}
	if o.MaxRequests != 0 {
		g.MaxRequests = o.MaxRequests
	}
	if o.MaxRequestsJitter != 0 {
		g.MaxRequestsJitter = o.MaxRequestsJitter
	}
	return g
}

// PreferredHost returns the first allowed host.
func (p ParameterSet) PreferredHost() string { return p.AllowedHosts[0] }

// NetboxDir is the NetBox checkout root under the install root.
func (p ParameterSet) NetboxDir() string { return filepath.Join(p.InstallRoot, "netbox") }

// GunicornConfigPath is the target path of the process-manager config.
func (p ParameterSet) GunicornConfigPath() string {
	return filepath.Join(p.NetboxDir(), "gunicorn.py")
}

// AppDir is the Django project directory containing manage.py.
func (p ParameterSet) AppDir() string { return filepath.Join(p.NetboxDir(), "netbox") }

// SettingsPath is the target path of the application settings file.
func (p ParameterSet) SettingsPath() string {
	return filepath.Join(p.AppDir(), "netbox", "configuration.py")
}

// VenvDir is the virtualenv the management commands run inside.
func (p ParameterSet) VenvDir() string { return filepath.Join(p.NetboxDir(), "venv") }

// validHost accepts RFC 1123 hostnames and literal IP addresses.
func validHost(h string) bool {
	if h == "" || len(h) > 253 {
		return false
	}
	if _, err := netip.ParseAddr(h); err == nil {
		return true
	}
	for _, label := range strings.Split(strings.TrimSuffix(h, "."), ".") {
		if !validLabel(label) {
			return false
		}
	}
	return true
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}
