// Package worker is the SDK for building compilation worker executables.
// It implements the worker side of the harness channel protocol; the
// parsing, templating, and graph construction themselves are supplied by
// the caller as a CompileFunc and linked into a worker binary.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/db-magnus/dataform/pkg/core"
)

// The harness hands every worker two channels beyond the standard streams:
// the control channel carries the compile request in and an optional error
// message out, the data channel carries the serialized compiled graph back
// to the harness.
const (
	ControlFD = 3
	DataFD    = 4
)

// CompileFunc performs one compilation: it receives the request exactly as
// the caller of the harness provided it and streams the serialized graph to
// out. Returning an error reports it to the harness over the control
// channel.
type CompileFunc func(ctx context.Context, req *core.CompileConfig, out io.Writer) error

// Serve runs one compilation over the process's harness channels and
// returns the process exit code: 0 on success, nonzero on failure. Worker
// binaries call it from main:
//
//	os.Exit(worker.Serve(context.Background(), logger, compile))
func Serve(ctx context.Context, logger *slog.Logger, compile CompileFunc) int {
	ctl := os.NewFile(ControlFD, "control")
	data := os.NewFile(DataFD, "data")
	if ctl == nil || data == nil {
		fmt.Fprintln(os.Stderr, "worker: harness channels not present, not spawned by the compilation harness?")
		return 1
	}
	defer ctl.Close()
	defer data.Close()

	return serve(ctx, logger, ctl, data, compile)
}

// serve is Serve with the channels injected, so the protocol can be
// exercised in-process.
func serve(ctx context.Context, logger *slog.Logger, ctl io.ReadWriteCloser, data io.WriteCloser, compile CompileFunc) int {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var req core.CompileConfig
	if err := json.NewDecoder(ctl).Decode(&req); err != nil {
		return fail(logger, ctl, fmt.Errorf("reading compile request: %w", err))
	}

	logger.Debug("compile request received", "project_dir", req.ProjectDir, "timeout_millis", req.Timeout())

	if err := compile(ctx, &req, data); err != nil {
		return fail(logger, ctl, err)
	}

	// Close the data channel before exiting so the harness sees the end of
	// the stream even if other descriptors linger.
	_ = data.Close()
	return 0
}

// fail reports an error to the harness over the control channel and returns
// the failure exit code. The harness also treats the nonzero exit itself as
// failure, so a worker that dies before writing still surfaces.
func fail(logger *slog.Logger, ctl io.Writer, err error) int {
	logger.Error("compilation failed", "error", err)
	_, _ = io.WriteString(ctl, err.Error())
	return 1
}
