package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnDescriptorLeaf(t *testing.T) {
	var d ColumnDescriptor
	require.NoError(t, json.Unmarshal([]byte(`"customer identifier"`), &d))

	assert.True(t, d.IsLeaf())
	assert.Equal(t, "customer identifier", d.Description)
}

func TestColumnDescriptorNestedGroup(t *testing.T) {
	raw := `{
		"street": "street address",
		"geo": {
			"lat": "latitude",
			"lon": "longitude"
		}
	}`

	var d ColumnDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	require.False(t, d.IsLeaf())
	require.Contains(t, d.Columns, "street")
	assert.True(t, d.Columns["street"].IsLeaf())

	geo := d.Columns["geo"]
	require.NotNil(t, geo)
	require.False(t, geo.IsLeaf())
	assert.Equal(t, "latitude", geo.Columns["lat"].Description)
	assert.Equal(t, "longitude", geo.Columns["lon"].Description)
}

func TestColumnDescriptorRejectsOtherShapes(t *testing.T) {
	var d ColumnDescriptor
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &d))
}

func TestColumnDescriptorMarshalRoundTrip(t *testing.T) {
	d := &ColumnDescriptor{Columns: map[string]*ColumnDescriptor{
		"id":   {Description: "primary key"},
		"meta": {Columns: map[string]*ColumnDescriptor{"source": {Description: "origin system"}}},
	}}

	b, err := json.Marshal(d)
	require.NoError(t, err)

	var back ColumnDescriptor
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d.Columns["id"].Description, back.Columns["id"].Description)
	assert.Equal(t, "origin system", back.Columns["meta"].Columns["source"].Description)
}

func TestProjectConfigAsMapOmitsUnsetFields(t *testing.T) {
	cfg := &ProjectConfig{
		Warehouse:     "bigquery",
		DefaultSchema: "analytics",
		Vars:          map[string]string{"env": "prod"},
	}

	m := cfg.AsMap()
	assert.Equal(t, "bigquery", m["warehouse"])
	assert.Equal(t, "analytics", m["defaultSchema"])
	assert.Equal(t, map[string]any{"env": "prod"}, m["vars"])
	assert.NotContains(t, m, "schemaSuffix")
	assert.NotContains(t, m, "tablePrefix")
}

func TestProjectConfigAsMapNil(t *testing.T) {
	var cfg *ProjectConfig
	assert.Empty(t, cfg.AsMap())
}

func TestCompileConfigTimeoutDefault(t *testing.T) {
	assert.Equal(t, DefaultTimeoutMillis, (&CompileConfig{}).Timeout())
	assert.Equal(t, DefaultTimeoutMillis, (&CompileConfig{TimeoutMillis: -1}).Timeout())
	assert.Equal(t, 250, (&CompileConfig{TimeoutMillis: 250}).Timeout())
}
