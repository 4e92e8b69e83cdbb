package config

import (
	"fmt"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/db-magnus/dataform/pkg/core"
)

// Effective builds the effective project configuration for one compile
// request by layering, lowest to highest:
//
//  1. the on-disk project configuration file,
//  2. the schema-suffix shortcut, if given,
//  3. the full per-call override.
//
// Higher layers win field by field. Vars merge per key rather than
// wholesale, so an override var replaces only its own key. Because the
// shortcut sits below the override, an explicit override SchemaSuffix always
// wins over the shortcut.
//
// It returns the merged config and the path of the configuration file it was
// based on (empty if the project has none).
func Effective(projectDir string, override *core.ProjectConfig, schemaSuffixOverride string) (*core.ProjectConfig, string, error) {
	k := koanf.New(".")

	path := findConfigFile(projectDir)
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, path, fmt.Errorf("%s %s: %w", ErrPrefix, path, err)
		}
	}

	if schemaSuffixOverride != "" {
		layer := map[string]any{"schemaSuffix": schemaSuffixOverride}
		if err := k.Load(confmap.Provider(layer, "."), nil); err != nil {
			return nil, path, fmt.Errorf("merging schema suffix override: %w", err)
		}
	}

	if override != nil {
		if err := k.Load(confmap.Provider(override.AsMap(), "."), nil); err != nil {
			return nil, path, fmt.Errorf("merging project config override: %w", err)
		}
	}

	var eff core.ProjectConfig
	if err := k.Unmarshal("", &eff); err != nil {
		return nil, path, fmt.Errorf("%s %s: %w", ErrPrefix, path, err)
	}

	return &eff, path, nil
}
