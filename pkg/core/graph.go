package core

import (
	"encoding/json"
	"fmt"
)

// ActionType tags the kind of a compiled action.
type ActionType string

// Action types produced by compilation.
const (
	ActionTable       ActionType = "table"
	ActionView        ActionType = "view"
	ActionIncremental ActionType = "incremental"
	ActionOperation   ActionType = "operation"
	ActionAssertion   ActionType = "assertion"
	ActionDeclaration ActionType = "declaration"
)

// Target identifies where an action materializes in the warehouse.
type Target struct {
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
	Name     string `json:"name"`
}

// Action is one named, typed unit of data transformation in a compiled
// graph: a configuration block plus a fully resolved SQL body.
type Action struct {
	Name         string                       `json:"name"`
	Type         ActionType                   `json:"type"`
	Target       *Target                      `json:"target,omitempty"`
	Dependencies []string                     `json:"dependencies,omitempty"`
	Description  string                       `json:"description,omitempty"`
	Columns      map[string]*ColumnDescriptor `json:"columns,omitempty"`

	// Hermetic reports whether the action's output depends only on its
	// declared inputs.
	Hermetic bool `json:"hermetic,omitempty"`

	// Disabled actions are carried in the graph but skipped by execution.
	Disabled bool `json:"disabled,omitempty"`

	// Query is the resolved SQL body, conditionals already evaluated.
	Query string `json:"query,omitempty"`
}

// CompiledGraph is the fully resolved, dependency-aware set of actions
// produced by one compilation. The harness treats it as opaque between the
// worker and the decoder; callers own it once decoded.
type CompiledGraph struct {
	ProjectConfig *ProjectConfig `json:"projectConfig,omitempty"`
	Actions       []*Action      `json:"actions"`

	// GraphErrors carries non-fatal problems the worker chose to report
	// alongside a usable graph.
	GraphErrors []string `json:"graphErrors,omitempty"`
}

// ActionNames returns the names of all actions in declaration order.
func (g *CompiledGraph) ActionNames() []string {
	names := make([]string, 0, len(g.Actions))
	for _, a := range g.Actions {
		names = append(names, a.Name)
	}
	return names
}

// ColumnDescriptor documents one column of an action's output. A descriptor
// is either a leaf (plain description text) or a group of named child
// descriptors, nested to arbitrary depth for struct-typed columns.
type ColumnDescriptor struct {
	Description string
	Columns     map[string]*ColumnDescriptor
}

// IsLeaf reports whether the descriptor is plain description text.
func (d *ColumnDescriptor) IsLeaf() bool {
	return len(d.Columns) == 0
}

// UnmarshalJSON accepts either a bare string (leaf) or an object mapping
// column names to nested descriptors (group).
func (d *ColumnDescriptor) UnmarshalJSON(b []byte) error {
	var leaf string
	if err := json.Unmarshal(b, &leaf); err == nil {
		d.Description = leaf
		d.Columns = nil
		return nil
	}

	var group map[string]*ColumnDescriptor
	if err := json.Unmarshal(b, &group); err != nil {
		return fmt.Errorf("column descriptor must be a string or a nested mapping: %w", err)
	}
	d.Description = ""
	d.Columns = group
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON: leaves serialize as strings,
// groups as objects.
func (d *ColumnDescriptor) MarshalJSON() ([]byte, error) {
	if d.IsLeaf() {
		return json.Marshal(d.Description)
	}
	return json.Marshal(d.Columns)
}
