// Package commands wires the dataform CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCommand creates the root dataform command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dataform",
		Short:         "Compile data transformation projects into dependency-aware graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCompileCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// newLogger builds the CLI logger honoring --verbose. Logs go to stderr so
// command output stays pipeable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
