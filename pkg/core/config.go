// Package core defines the shared contract between the compilation harness
// and worker processes: project configuration, compile requests, and the
// compiled graph produced by a worker.
//
// This package is dependency-free so that worker implementations can import
// it without pulling in the harness itself.
package core

// ProjectConfig holds the per-project configuration read from the project
// configuration file (dataform.json or workflow_settings.yaml).
//
// All fields are optional at this level; validity rules (supported
// warehouses, mandatory fields, identifier patterns) are enforced by the
// harness before compilation starts.
type ProjectConfig struct {
	// Warehouse is the target warehouse kind (e.g. "bigquery", "snowflake").
	Warehouse string `json:"warehouse,omitempty" koanf:"warehouse"`

	// DefaultDatabase is the database actions are created in when a
	// definition does not name one explicitly.
	DefaultDatabase string `json:"defaultDatabase,omitempty" koanf:"defaultDatabase"`

	// DefaultSchema is the schema actions are created in by default.
	DefaultSchema string `json:"defaultSchema,omitempty" koanf:"defaultSchema"`

	// AssertionSchema is the schema assertion views are created in.
	AssertionSchema string `json:"assertionSchema,omitempty" koanf:"assertionSchema"`

	// DatabaseSuffix is appended to all database names.
	DatabaseSuffix string `json:"databaseSuffix,omitempty" koanf:"databaseSuffix"`

	// SchemaSuffix is appended to all schema names.
	SchemaSuffix string `json:"schemaSuffix,omitempty" koanf:"schemaSuffix"`

	// TablePrefix is prepended to all action names.
	TablePrefix string `json:"tablePrefix,omitempty" koanf:"tablePrefix"`

	// Vars holds user-defined variables available to definitions at
	// compile time.
	Vars map[string]string `json:"vars,omitempty" koanf:"vars"`
}

// AsMap returns the set fields of the config as a flat key/value mapping
// using wire names. Zero-valued fields are omitted so the result can be
// layered over a base configuration without clobbering it.
func (c *ProjectConfig) AsMap() map[string]any {
	m := map[string]any{}
	if c == nil {
		return m
	}
	set := func(key, val string) {
		if val != "" {
			m[key] = val
		}
	}
	set("warehouse", c.Warehouse)
	set("defaultDatabase", c.DefaultDatabase)
	set("defaultSchema", c.DefaultSchema)
	set("assertionSchema", c.AssertionSchema)
	set("databaseSuffix", c.DatabaseSuffix)
	set("schemaSuffix", c.SchemaSuffix)
	set("tablePrefix", c.TablePrefix)
	if len(c.Vars) > 0 {
		vars := make(map[string]any, len(c.Vars))
		for k, v := range c.Vars {
			vars[k] = v
		}
		m["vars"] = vars
	}
	return m
}

// DefaultTimeoutMillis is the compilation timeout applied when a
// CompileConfig does not specify one.
const DefaultTimeoutMillis = 5000

// CompileConfig is the request for one compilation. A fresh value is built
// per call; it is sent to the worker exactly as the caller provided it.
type CompileConfig struct {
	// ProjectDir is the root directory of the project to compile.
	ProjectDir string `json:"projectDir"`

	// ProjectConfigOverride is layered over the on-disk project
	// configuration, field by field. Its Vars merge per key rather than
	// replacing the project's vars wholesale.
	ProjectConfigOverride *ProjectConfig `json:"projectConfigOverride,omitempty"`

	// SchemaSuffixOverride is a shortcut for overriding schemaSuffix alone.
	// ProjectConfigOverride.SchemaSuffix wins if both are given.
	SchemaSuffixOverride string `json:"schemaSuffixOverride,omitempty"`

	// TimeoutMillis bounds the whole compilation. Zero means
	// DefaultTimeoutMillis.
	TimeoutMillis int `json:"timeoutMillis,omitempty"`
}

// Timeout returns the effective timeout in milliseconds.
func (c *CompileConfig) Timeout() int {
	if c.TimeoutMillis <= 0 {
		return DefaultTimeoutMillis
	}
	return c.TimeoutMillis
}
