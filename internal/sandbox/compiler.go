// Package sandbox runs compilation requests in isolated worker processes.
// It owns the full lifecycle of one worker per run: spawn, send the request,
// collect the streamed result, enforce the timeout, and tear the worker down
// on every exit path. User-authored template code executing in the worker
// can therefore hang or crash without taking the host process with it.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/db-magnus/dataform/pkg/core"
	"github.com/db-magnus/dataform/pkg/worker"
)

// Compiler executes compilation requests, one isolated worker process per
// Run call. Concurrent Run calls are independent: each owns its process,
// channels, and timer.
type Compiler struct {
	locator Locator
	logger  *slog.Logger
}

// Config holds compiler configuration.
type Config struct {
	// Locator resolves the worker executable (optional, uses
	// DefaultLocator if nil).
	Locator Locator
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates a Compiler.
func New(cfg Config) *Compiler {
	locator := cfg.Locator
	if locator == nil {
		locator = DefaultLocator()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Compiler{locator: locator, logger: logger}
}

// outcome is the single-resolution result of one worker run.
type outcome struct {
	data []byte
	err  error
}

// Run executes exactly one compilation request in a child process and
// returns the raw bytes the worker streamed over the data channel.
//
// The worker is spawned with four channels: stdin/stdout/stderr inherited
// for diagnostics, the control channel on fd 3 (request out,
// error-or-nothing in), and the data channel on fd 4 (worker to harness
// byte stream). The worker's completion races a countdown of the request's
// timeout; whichever resolves first wins, and teardown (kill, timer stop,
// channel close) runs exactly once regardless of the branch taken.
func (c *Compiler) Run(ctx context.Context, req *core.CompileConfig) ([]byte, error) {
	timeout := time.Duration(req.Timeout()) * time.Millisecond
	proc := newProcess()
	logger := c.logger.With("run_id", proc.ID, "project_dir", req.ProjectDir)

	w, err := c.locator.Locate(req.ProjectDir)
	if err != nil {
		proc.resolve(StatusSpawnFailed)
		return nil, &SpawnError{Err: err}
	}

	ctl, ctlChild, err := controlPair()
	if err != nil {
		proc.resolve(StatusSpawnFailed)
		return nil, &SpawnError{Err: err}
	}
	dataR, dataW, err := os.Pipe()
	if err != nil {
		_ = ctl.Close()
		_ = ctlChild.Close()
		proc.resolve(StatusSpawnFailed)
		return nil, &SpawnError{Err: err}
	}

	cmd := exec.Command(w.Path, w.Args...)
	cmd.Dir = req.ProjectDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), w.Env...)
	// ExtraFiles[i] becomes fd 3+i in the child.
	extra := make([]*os.File, 2)
	extra[worker.ControlFD-3] = ctlChild
	extra[worker.DataFD-3] = dataW
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		_ = ctl.Close()
		_ = ctlChild.Close()
		_ = dataR.Close()
		_ = dataW.Close()
		proc.resolve(StatusSpawnFailed)
		return nil, &SpawnError{Err: err}
	}
	// The child holds its own duplicates now.
	_ = ctlChild.Close()
	_ = dataW.Close()

	proc.started(cmd.Process.Pid)
	logger.Debug("worker started", "pid", proc.PID(), "worker", w.Path, "timeout", timeout)

	timer := time.NewTimer(timeout)
	defer func() {
		// Teardown runs once on every path. Killing an already-exited
		// worker and re-closing channels are ignored, not escalated.
		timer.Stop()
		_ = cmd.Process.Kill()
		_ = ctl.Close()
		_ = dataR.Close()
		proc.setStatus(StatusTerminated)
		logger.Debug("worker torn down", "outcome", proc.Outcome())
	}()

	done := make(chan outcome, 1)
	go func() {
		done <- c.await(cmd, ctl, dataR, req)
	}()

	select {
	case <-timer.C:
		proc.resolve(StatusTimedOut)
		return nil, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		proc.resolve(StatusTimedOut)
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			proc.resolve(StatusCrashed)
			return nil, res.err
		}
		proc.resolve(StatusCompleted)
		logger.Debug("worker completed", "result_bytes", len(res.data))
		return res.data, nil
	}
}

// await drives the request/response protocol to completion: send the
// request, drain both channels, reap the process, and classify the result.
// It runs in its own goroutine; if the timeout wins the race its eventual
// return is discarded.
func (c *Compiler) await(cmd *exec.Cmd, ctl *net.UnixConn, dataR *os.File, req *core.CompileConfig) outcome {
	var data bytes.Buffer
	var ctlMsg []byte

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := json.NewEncoder(ctl).Encode(req); err != nil {
			return fmt.Errorf("sending compile request: %w", err)
		}
		// Half-close so the worker sees EOF after the single request.
		return ctl.CloseWrite()
	})
	g.Go(func() error {
		// Anything the worker writes back on the control channel is an
		// error message.
		b, err := io.ReadAll(ctl)
		ctlMsg = b
		if err != nil {
			return fmt.Errorf("reading control channel: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Chunks are buffered in arrival order until the worker closes
		// the data channel.
		if _, err := io.Copy(&data, dataR); err != nil {
			return fmt.Errorf("reading data channel: %w", err)
		}
		return nil
	})
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			msg := strings.TrimSpace(string(ctlMsg))
			if msg == "" {
				msg = fmt.Sprintf("worker exited with code %d", exitErr.ExitCode())
			}
			return outcome{err: &WorkerFailure{Message: msg, ExitCode: exitErr.ExitCode()}}
		}
		return outcome{err: &WorkerFailure{Message: waitErr.Error(), ExitCode: -1}}
	}
	if msg := strings.TrimSpace(string(ctlMsg)); msg != "" {
		return outcome{err: &WorkerFailure{Message: msg, ExitCode: 0}}
	}
	if pumpErr != nil {
		return outcome{err: &WorkerFailure{Message: pumpErr.Error(), ExitCode: 0}}
	}
	return outcome{data: data.Bytes()}
}

// controlPair creates the bidirectional control channel as a UNIX socket
// pair. The parent end comes back as a *net.UnixConn so the request
// direction can be half-closed once the request has been sent; the child
// end is handed to the worker as worker.ControlFD.
func controlPair() (*net.UnixConn, *os.File, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("creating control channel: %w", err)
	}
	parent := os.NewFile(uintptr(fds[0]), "control-parent")
	child := os.NewFile(uintptr(fds[1]), "control-child")

	conn, err := net.FileConn(parent)
	_ = parent.Close()
	if err != nil {
		_ = child.Close()
		return nil, nil, fmt.Errorf("creating control channel: %w", err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		_ = child.Close()
		return nil, nil, fmt.Errorf("creating control channel: unexpected conn type %T", conn)
	}
	return uc, child, nil
}
