package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/db-magnus/dataform/internal/sandbox"
	"github.com/db-magnus/dataform/pkg/core"
	"github.com/db-magnus/dataform/pkg/worker"
)

// Scripted workers re-execute the test binary itself as the worker process,
// so sandbox tests exercise the real spawn/channel/teardown machinery. A
// package's TestMain calls RunWorkerIfRequested before m.Run; tests then
// inject WorkerLocator into the compiler under test.
//
// Environment variables controlling the scripted worker:
const (
	// WorkerModeEnv selects the script; empty means "run tests normally".
	WorkerModeEnv = "DATAFORM_TEST_WORKER_MODE"
	// WorkerGraphEnv is the payload streamed on the data channel.
	WorkerGraphEnv = "DATAFORM_TEST_WORKER_GRAPH"
	// WorkerSleepEnv delays the worker before it produces its result.
	WorkerSleepEnv = "DATAFORM_TEST_WORKER_SLEEP"
	// WorkerExitEnv is the exit code for the "exit" script.
	WorkerExitEnv = "DATAFORM_TEST_WORKER_EXIT"
	// WorkerErrorEnv is the control-channel message for the "error" script.
	WorkerErrorEnv = "DATAFORM_TEST_WORKER_ERROR"
	// WorkerPIDFileEnv is where the "hang" script records its pid.
	WorkerPIDFileEnv = "DATAFORM_TEST_WORKER_PIDFILE"
)

// Worker script modes.
const (
	// ModeGraph serves the WorkerGraphEnv payload and exits 0.
	ModeGraph = "graph"
	// ModeError reports WorkerErrorEnv over the control channel.
	ModeError = "error"
	// ModeExit exits immediately with WorkerExitEnv, sending nothing.
	ModeExit = "exit"
	// ModeHang writes its pid to WorkerPIDFileEnv and blocks forever.
	ModeHang = "hang"
	// ModeEmpty serves no bytes at all and exits 0.
	ModeEmpty = "empty"
	// ModeEcho serves a one-action graph whose query is the JSON of the
	// request the worker received, so tests can assert what crossed the
	// control channel.
	ModeEcho = "echo"
)

// WorkerLocator returns a sandbox locator that resolves every project to
// this test binary, re-executed as a scripted worker.
func WorkerLocator(mode string, env map[string]string) sandbox.Locator {
	return sandbox.LocatorFunc(func(string) (*sandbox.Worker, error) {
		extra := []string{WorkerModeEnv + "=" + mode}
		for k, v := range env {
			extra = append(extra, k+"="+v)
		}
		return &sandbox.Worker{Path: os.Args[0], Env: extra}, nil
	})
}

// RunWorkerIfRequested turns the current process into a scripted worker and
// exits when the worker-mode environment variable is set. Call it first in
// TestMain.
func RunWorkerIfRequested() {
	mode := os.Getenv(WorkerModeEnv)
	if mode == "" {
		return
	}
	os.Exit(runScript(mode))
}

func runScript(mode string) int {
	sleepFromEnv()

	switch mode {
	case ModeGraph:
		return worker.Serve(context.Background(), nil, func(_ context.Context, _ *core.CompileConfig, out io.Writer) error {
			_, err := io.WriteString(out, os.Getenv(WorkerGraphEnv))
			return err
		})

	case ModeError:
		return worker.Serve(context.Background(), nil, func(context.Context, *core.CompileConfig, io.Writer) error {
			return errors.New(os.Getenv(WorkerErrorEnv))
		})

	case ModeExit:
		code, err := strconv.Atoi(os.Getenv(WorkerExitEnv))
		if err != nil {
			code = 1
		}
		return code

	case ModeHang:
		if path := os.Getenv(WorkerPIDFileEnv); path != "" {
			_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
		}
		// A bare select{} would trip the runtime deadlock detector in the
		// single-goroutine worker; sleeping blocks just as indefinitely.
		for {
			time.Sleep(time.Hour)
		}

	case ModeEcho:
		return worker.Serve(context.Background(), nil, func(_ context.Context, req *core.CompileConfig, out io.Writer) error {
			reqJSON, err := json.Marshal(req)
			if err != nil {
				return err
			}
			b, err := core.EncodeGraph(&core.CompiledGraph{Actions: []*core.Action{
				{Name: "echo", Type: core.ActionOperation, Query: string(reqJSON)},
			}})
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		})

	case ModeEmpty:
		return worker.Serve(context.Background(), nil, func(context.Context, *core.CompileConfig, io.Writer) error {
			return nil
		})

	default:
		fmt.Fprintf(os.Stderr, "unknown worker script %q\n", mode)
		return 2
	}
}

func sleepFromEnv() {
	if raw := os.Getenv(WorkerSleepEnv); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			time.Sleep(d)
		}
	}
}
