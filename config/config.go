// Package config loads and validates the netboxup parameter file.
//
// YAML and TOML are both accepted; the format is picked by file extension.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"netboxup/internal/params"
)

// DefaultPath is where apply looks for parameters unless told otherwise.
const DefaultPath = "/etc/netboxup/netboxup.yaml"

// DefaultDataDir holds the run journal.
const DefaultDataDir = "/var/lib/netboxup"

// Load reads the parameter file at path and returns a validated ParameterSet.
func Load(path string) (params.ParameterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return params.ParameterSet{}, fmt.Errorf("read parameter file: %w", err)
	}

	var raw params.Raw
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return params.ParameterSet{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return params.ParameterSet{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return params.ParameterSet{}, fmt.Errorf("unsupported parameter file extension %q (want .yaml, .yml or .toml)", ext)
	}

	return params.Validate(raw)
}
