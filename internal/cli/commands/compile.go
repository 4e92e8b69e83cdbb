package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/db-magnus/dataform/internal/dag"
	"github.com/db-magnus/dataform/internal/session"
	"github.com/db-magnus/dataform/pkg/core"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	ProjectDir    string
	SchemaSuffix  string
	TimeoutMillis int
	Vars          []string
	JSONOutput    bool
	Watch         bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the project into a dependency-aware graph",
		Long: `Compile validates the project configuration, runs the compilation in an
isolated worker process with a hard timeout, and prints the resulting
graph of actions in dependency order.`,
		Example: `  # Compile the project in the current directory
  dataform compile

  # Compile a staging variant of the project
  dataform compile --schema-suffix staging

  # Print the raw compiled graph as JSON
  dataform compile --json

  # Recompile on every change
  dataform compile --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts)
		},
	}

	addCompileFlags(cmd.Flags(), opts)
	return cmd
}

func addCompileFlags(fs *pflag.FlagSet, opts *CompileOptions) {
	fs.StringVarP(&opts.ProjectDir, "project-dir", "p", ".", "Project directory to compile")
	fs.StringVar(&opts.SchemaSuffix, "schema-suffix", "", "Suffix appended to all schema names")
	fs.IntVar(&opts.TimeoutMillis, "timeout", 0, "Compilation timeout in milliseconds (default 5000)")
	fs.StringArrayVar(&opts.Vars, "vars", nil, "Compile-time variable overrides as key=value, repeatable")
	fs.BoolVar(&opts.JSONOutput, "json", false, "Print the raw compiled graph as JSON")
	fs.BoolVarP(&opts.Watch, "watch", "w", false, "Recompile whenever the project changes")
}

func runCompile(cmd *cobra.Command, opts *CompileOptions) error {
	req, err := compileRequest(opts)
	if err != nil {
		return err
	}

	sess := session.New(session.Config{Logger: newLogger()})

	if opts.Watch {
		return sess.Watch(cmd.Context(), *req, func(g *core.CompiledGraph, err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return
			}
			if err := printGraph(cmd, g, opts.JSONOutput); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		})
	}

	graph, err := sess.Compile(cmd.Context(), *req)
	if err != nil {
		return err
	}
	return printGraph(cmd, graph, opts.JSONOutput)
}

// compileRequest translates CLI flags into a compile request.
func compileRequest(opts *CompileOptions) (*core.CompileConfig, error) {
	req := &core.CompileConfig{
		ProjectDir:           opts.ProjectDir,
		SchemaSuffixOverride: opts.SchemaSuffix,
		TimeoutMillis:        opts.TimeoutMillis,
	}

	if len(opts.Vars) > 0 {
		vars := make(map[string]string, len(opts.Vars))
		for _, kv := range opts.Vars {
			key, val, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid --vars entry %q, expected key=value", kv)
			}
			vars[key] = val
		}
		req.ProjectConfigOverride = &core.ProjectConfig{Vars: vars}
	}

	return req, nil
}

func printGraph(cmd *cobra.Command, g *core.CompiledGraph, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		b, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	deps, err := dag.FromGraph(g)
	if err != nil {
		return fmt.Errorf("compiled graph is not a valid DAG: %w", err)
	}
	ordered, err := deps.TopologicalSort()
	if err != nil {
		return fmt.Errorf("compiled graph is not a valid DAG: %w", err)
	}

	fmt.Fprintf(out, "Compiled %d actions:\n\n", len(g.Actions))
	for i, node := range ordered {
		a := node.Action
		depStr := ""
		if parents := deps.Parents(node.ID); len(parents) > 0 {
			depStr = fmt.Sprintf(" <- %s", strings.Join(parents, ", "))
		}
		fmt.Fprintf(out, "  %2d. %-35s [%s]%s\n", i+1, a.Name, a.Type, depStr)
	}

	for _, msg := range g.GraphErrors {
		fmt.Fprintf(out, "\nwarning: %s\n", msg)
	}
	return nil
}
