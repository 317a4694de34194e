package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"netboxup/config"
	"netboxup/internal/params"
)

const yamlParams = `
user: netbox
group: netbox
install_root: /opt
allowed_hosts:
  - netbox.example.com
database:
  name: netbox
  user: netbox
  password: secret
  host: db.example.com
  port: 5432
  conn_max_age: 300
redis:
  tasks:
    host: localhost
    port: 6379
secret_key: kkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkk
admins:
  - name: ops
    email: ops@example.com
banner_top: hello
login_required: true
`

const tomlParams = `
user = "netbox"
group = "netbox"
install_root = "/opt"
allowed_hosts = ["netbox.example.com"]
secret_key = "kkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkkk"
banner_top = "hello"
login_required = true

[database]
name = "netbox"
user = "netbox"
password = "secret"
host = "db.example.com"
port = 5432
conn_max_age = 300

[redis.tasks]
host = "localhost"
port = 6379

[[admins]]
name = "ops"
email = "ops@example.com"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	p, err := config.Load(writeFile(t, "netboxup.yaml", yamlParams))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.User != "netbox" || p.Database.Port != 5432 || !p.LoginRequired {
		t.Fatalf("Load() = %+v", p)
	}
	if p.Gunicorn != params.DefaultGunicorn {
		t.Fatalf("Gunicorn = %+v, want defaults", p.Gunicorn)
	}
}

func TestLoad_YAMLAndTOMLAgree(t *testing.T) {
	fromYAML, err := config.Load(writeFile(t, "p.yaml", yamlParams))
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	fromTOML, err := config.Load(writeFile(t, "p.toml", tomlParams))
	if err != nil {
		t.Fatalf("Load(toml) error = %v", err)
	}

	// Map value types differ between decoders (int vs int64); compare the
	// scalar fields and structure instead of deep-equality on Redis.
	fromYAML.Redis, fromTOML.Redis = nil, nil
	if !reflect.DeepEqual(fromYAML, fromTOML) {
		t.Fatalf("decoded parameter sets differ:\nyaml: %+v\ntoml: %+v", fromYAML, fromTOML)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := config.Load(writeFile(t, "params.json", "{}"))
	if err == nil {
		t.Fatal("Load() error = nil, want unsupported extension error")
	}
}

func TestLoad_ValidationErrorSurfaces(t *testing.T) {
	_, err := config.Load(writeFile(t, "bad.yaml", "user: netbox\n"))
	var verr *params.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error = %v, want ValidationError", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() error = %v, want wrapped ErrNotExist", err)
	}
}
