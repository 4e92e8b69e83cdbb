// Package session is the public entry point for compilation: it merges
// configuration overrides, validates the effective project configuration,
// delegates the request to an isolated worker, and decodes the result.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/db-magnus/dataform/internal/config"
	"github.com/db-magnus/dataform/internal/sandbox"
	"github.com/db-magnus/dataform/pkg/core"
)

// Session coordinates compilations. It is stateless across Compile calls;
// concurrent calls are independent.
type Session struct {
	compiler *sandbox.Compiler
	logger   *slog.Logger
}

// Config holds session configuration.
type Config struct {
	// Locator overrides worker resolution (optional).
	Locator sandbox.Locator
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates a Session.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		compiler: sandbox.New(sandbox.Config{Locator: cfg.Locator, Logger: logger}),
		logger:   logger,
	}
}

// Compile runs one compilation and returns the decoded graph.
//
// Validation runs against the effective merged view of the project
// configuration, as a pre-flight check before any worker is spawned. The
// worker then receives the request as given; it re-merges with the same
// canonical function (config.Effective), so what is validated and what is
// executed cannot diverge.
func (s *Session) Compile(ctx context.Context, req core.CompileConfig) (*core.CompiledGraph, error) {
	projectDir, err := filepath.Abs(req.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	req.ProjectDir = projectDir

	effective, cfgPath, err := config.Effective(projectDir, req.ProjectConfigOverride, req.SchemaSuffixOverride)
	if err != nil {
		return nil, err
	}
	if cfgPath == "" {
		cfgPath = filepath.Join(projectDir, config.ConfigFileName)
	}
	if err := config.Validate(effective); err != nil {
		return nil, fmt.Errorf("%s %s: %w", config.ErrPrefix, cfgPath, err)
	}

	s.logger.Debug("configuration validated",
		"config_file", cfgPath,
		"warehouse", effective.Warehouse,
		"default_schema", effective.DefaultSchema)

	raw, err := s.compiler.Run(ctx, &req)
	if err != nil {
		return nil, err
	}

	graph, err := core.DecodeGraph(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("compilation finished", "actions", len(graph.Actions))
	return graph, nil
}
