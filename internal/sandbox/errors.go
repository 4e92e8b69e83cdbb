package sandbox

import (
	"fmt"
	"strings"
	"time"
)

// WorkerNotFoundError reports that no worker executable could be resolved
// for a project.
type WorkerNotFoundError struct {
	// Tried lists the locations that were checked, in resolution order.
	Tried []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("no compilation worker found, tried: %s", strings.Join(e.Tried, ", "))
}

// SpawnError reports that the worker process could not be started. No
// compilation work happened.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning compilation worker: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// WorkerFailure reports that the worker signalled an error, either
// explicitly over the control channel or by exiting nonzero.
type WorkerFailure struct {
	// Message is the worker's own error message, or a synthesized
	// "exited with code N" when the worker sent none.
	Message string
	// ExitCode is the worker's exit status (0 when the worker exited
	// cleanly but reported an error on the control channel).
	ExitCode int
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("compilation failed: %s", e.Message)
}

// TimeoutError reports that the compilation countdown elapsed before the
// worker finished. The worker has been killed by the time this is returned.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("compilation timed out after %s", e.Timeout)
}
