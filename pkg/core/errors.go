package core

import "fmt"

// ConfigValidationError reports the first structural rule a project
// configuration violates. It is always raised before any worker is spawned.
type ConfigValidationError struct {
	// Field is the offending configuration field, when one is identifiable.
	Field string
	// Message is the human-readable description of the violation.
	Message string
}

func (e *ConfigValidationError) Error() string {
	return e.Message
}

// DecodeError reports that bytes retrieved from a worker do not parse as a
// valid compiled graph, indicating a contract mismatch between harness and
// worker.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding compiled graph: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decoding compiled graph: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
