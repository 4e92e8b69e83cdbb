// Package config loads, merges, and validates project configuration for the
// compilation harness. The merge implemented here is the single canonical
// one: the session uses it for pre-flight validation and worker
// implementations are expected to call it too, so the configuration that is
// validated and the one that is executed can never diverge.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/db-magnus/dataform/pkg/core"
)

// ConfigFileName is the primary name of the project configuration file.
const ConfigFileName = "dataform.json"

// ConfigFileNameAlt is the alternate, YAML-based configuration file name.
const ConfigFileNameAlt = "workflow_settings.yaml"

// ErrPrefix is the fixed prefix identifying the project configuration file
// as the cause of a load or validation failure.
const ErrPrefix = "invalid project configuration file"

// findConfigFile finds the configuration file in the project directory.
// Returns empty string if neither name exists.
func findConfigFile(projectDir string) string {
	jsonPath := filepath.Join(projectDir, ConfigFileName)
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}

	yamlPath := filepath.Join(projectDir, ConfigFileNameAlt)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	return ""
}

// parserFor picks the koanf parser matching the configuration file name.
func parserFor(path string) koanf.Parser {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return kyaml.Parser()
	default:
		return kjson.Parser()
	}
}

// Load reads the project configuration file from projectDir. It returns the
// parsed config and the path of the file it came from. A project without a
// configuration file yields an empty config and an empty path; callers that
// need one rely on the mandatory-field validation to reject it.
func Load(projectDir string) (*core.ProjectConfig, string, error) {
	path := findConfigFile(projectDir)
	if path == "" {
		return &core.ProjectConfig{}, "", nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, path, fmt.Errorf("%s %s: %w", ErrPrefix, path, err)
	}

	var cfg core.ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, path, fmt.Errorf("%s %s: %w", ErrPrefix, path, err)
	}

	return &cfg, path, nil
}
