package core

import (
	"bytes"
	"encoding/json"
)

// DecodeGraph deserializes the raw bytes streamed back by a worker into a
// CompiledGraph. It is total and side-effect free: any input that is not a
// valid serialized graph yields a DecodeError, never a silent empty graph.
func DecodeGraph(raw []byte) (*CompiledGraph, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &DecodeError{Message: "empty compilation result"}
	}
	if string(trimmed) == "null" {
		return nil, &DecodeError{Message: "compilation result is null"}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var g CompiledGraph
	if err := dec.Decode(&g); err != nil {
		return nil, &DecodeError{Message: "not a valid compiled graph", Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Message: "trailing data after compiled graph"}
	}
	return &g, nil
}

// EncodeGraph serializes a graph for the data channel. Workers use it; the
// harness only ever decodes.
func EncodeGraph(g *CompiledGraph) ([]byte, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, &DecodeError{Message: "graph is not serializable", Err: err}
	}
	return b, nil
}
