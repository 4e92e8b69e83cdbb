package sandbox

import (
	"sync"

	"github.com/google/uuid"
)

// Status is a lifecycle state of one worker process.
type Status string

// Worker process states. A process moves spawning → running, resolves to
// exactly one outcome (completed, crashed, timed_out, or spawn_failed
// without ever running), and ends terminated once teardown has run.
const (
	StatusSpawning    Status = "spawning"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusCrashed     Status = "crashed"
	StatusTimedOut    Status = "timed_out"
	StatusSpawnFailed Status = "spawn_failed"
	StatusTerminated  Status = "terminated"
)

// Process tracks one worker instance. It is owned exclusively by a single
// Compiler.Run invocation and never shared across calls.
type Process struct {
	// ID identifies the run in logs.
	ID string

	mu      sync.Mutex
	status  Status
	outcome Status
	pid     int
}

func newProcess() *Process {
	return &Process{
		ID:     uuid.NewString(),
		status: StatusSpawning,
	}
}

// Status returns the current lifecycle state.
func (p *Process) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Outcome returns how the run resolved, or "" while it is still in flight.
func (p *Process) Outcome() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

// PID returns the OS process ID, or 0 before the worker started.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *Process) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// resolve records the run's outcome, first writer wins: once a run has
// resolved (e.g. timed out), a late worker exit cannot change it.
func (p *Process) resolve(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == "" {
		p.outcome = s
	}
}

func (p *Process) started(pid int) {
	p.mu.Lock()
	p.pid = pid
	p.status = StatusRunning
	p.mu.Unlock()
}
