package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/db-magnus/dataform/pkg/core"
)

// SupportedWarehouses is the fixed set of warehouse kinds the execution
// engine can run compiled graphs against.
var SupportedWarehouses = []string{
	"bigquery",
	"postgres",
	"redshift",
	"snowflake",
	"sqldatawarehouse",
}

// identifierPattern restricts schema/prefix/suffix-like fields to
// alphanumeric, hyphen, and underscore characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)

// namedField pairs a field's wire name with an accessor, so checks run in a
// fixed, deterministic order.
type namedField struct {
	name  string
	value func(*core.ProjectConfig) string
}

// simpleFields are checked against identifierPattern, in this order.
var simpleFields = []namedField{
	{"assertionSchema", func(c *core.ProjectConfig) string { return c.AssertionSchema }},
	{"databaseSuffix", func(c *core.ProjectConfig) string { return c.DatabaseSuffix }},
	{"schemaSuffix", func(c *core.ProjectConfig) string { return c.SchemaSuffix }},
	{"tablePrefix", func(c *core.ProjectConfig) string { return c.TablePrefix }},
	{"defaultSchema", func(c *core.ProjectConfig) string { return c.DefaultSchema }},
}

// mandatoryFields must be present after merging, in this order.
var mandatoryFields = []namedField{
	{"warehouse", func(c *core.ProjectConfig) string { return c.Warehouse }},
	{"defaultSchema", func(c *core.ProjectConfig) string { return c.DefaultSchema }},
}

// Validate checks a merged project configuration against the structural
// rules, stopping at the first violation. It is pure: identical input
// always produces the identical result.
func Validate(cfg *core.ProjectConfig) error {
	if cfg.Warehouse != "" && !isSupportedWarehouse(cfg.Warehouse) {
		return &core.ConfigValidationError{
			Field: "warehouse",
			Message: fmt.Sprintf("unsupported warehouse %q, expected one of: %s",
				cfg.Warehouse, strings.Join(SupportedWarehouses, ", ")),
		}
	}

	for _, f := range simpleFields {
		v := f.value(cfg)
		if v != "" && !identifierPattern.MatchString(v) {
			return &core.ConfigValidationError{
				Field: f.name,
				Message: fmt.Sprintf("field %s value %q may only contain alphanumeric characters, hyphens, and underscores",
					f.name, v),
			}
		}
	}

	for _, f := range mandatoryFields {
		if f.value(cfg) == "" {
			return &core.ConfigValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("missing mandatory field %s", f.name),
			}
		}
	}

	return nil
}

func isSupportedWarehouse(warehouse string) bool {
	for _, w := range SupportedWarehouses {
		if w == warehouse {
			return true
		}
	}
	return false
}
