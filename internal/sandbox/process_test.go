package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessLifecycle(t *testing.T) {
	p := newProcess()
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusSpawning, p.Status())
	assert.Equal(t, Status(""), p.Outcome())

	p.started(4242)
	assert.Equal(t, StatusRunning, p.Status())
	assert.Equal(t, 4242, p.PID())

	p.resolve(StatusCompleted)
	p.setStatus(StatusTerminated)
	assert.Equal(t, StatusTerminated, p.Status())
	assert.Equal(t, StatusCompleted, p.Outcome())
}

func TestProcessResolveFirstWriterWins(t *testing.T) {
	p := newProcess()
	p.started(1)

	p.resolve(StatusTimedOut)
	// A late worker exit cannot overwrite a timed-out run.
	p.resolve(StatusCompleted)

	assert.Equal(t, StatusTimedOut, p.Outcome())
}

func TestProcessIDsAreUnique(t *testing.T) {
	a, b := newProcess(), newProcess()
	assert.NotEqual(t, a.ID, b.ID)
}
