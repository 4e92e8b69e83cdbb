package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGraph(t *testing.T) {
	raw := []byte(`{
		"projectConfig": {"warehouse": "bigquery", "defaultSchema": "analytics"},
		"actions": [
			{
				"name": "orders",
				"type": "table",
				"target": {"schema": "analytics", "name": "orders"},
				"dependencies": ["raw_orders"],
				"hermetic": true,
				"columns": {
					"id": "order id",
					"customer": {"id": "customer id", "region": "sales region"}
				},
				"query": "select * from raw_orders"
			},
			{"name": "raw_orders", "type": "declaration"}
		]
	}`)

	g, err := DecodeGraph(raw)
	require.NoError(t, err)

	require.Len(t, g.Actions, 2)
	assert.Equal(t, []string{"orders", "raw_orders"}, g.ActionNames())
	assert.Equal(t, "bigquery", g.ProjectConfig.Warehouse)

	orders := g.Actions[0]
	assert.Equal(t, ActionTable, orders.Type)
	assert.True(t, orders.Hermetic)
	assert.Equal(t, []string{"raw_orders"}, orders.Dependencies)
	assert.Equal(t, "order id", orders.Columns["id"].Description)
	assert.Equal(t, "sales region", orders.Columns["customer"].Columns["region"].Description)
}

func TestDecodeGraphGarbage(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`{"actions": "oops"}`,
		`{"actions": [}`,
		`123`,
	} {
		_, err := DecodeGraph([]byte(raw))

		var decodeErr *DecodeError
		require.Error(t, err, "input %q", raw)
		assert.ErrorAs(t, err, &decodeErr, "input %q", raw)
	}
}

func TestDecodeGraphEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("  \n"), []byte("null")} {
		_, err := DecodeGraph(raw)

		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), "input %q", raw)
	}
}

func TestDecodeGraphTrailingData(t *testing.T) {
	_, err := DecodeGraph([]byte(`{"actions": []} {"actions": []}`))

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := &CompiledGraph{
		Actions: []*Action{
			{Name: "a", Type: ActionView, Query: "select 1"},
			{Name: "b", Type: ActionAssertion, Dependencies: []string{"a"}},
		},
		GraphErrors: []string{"deprecated reference in b"},
	}

	b, err := EncodeGraph(g)
	require.NoError(t, err)

	back, err := DecodeGraph(b)
	require.NoError(t, err)
	require.Len(t, back.Actions, 2)
	assert.Equal(t, g.Actions[1].Dependencies, back.Actions[1].Dependencies)
	assert.Equal(t, g.GraphErrors, back.GraphErrors)
}
