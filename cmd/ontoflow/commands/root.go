package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	jsonOutput bool
	verbose    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ontoflow",
		Short: "ontoflow - schema-flexible knowledge store and workflow engine",
		Long: `ontoflow manages a runtime-defined ontology of classes and typed
instances, and executes declarative business handlers against it.

Features:
  - Classes defined and grown at runtime, no migrations
  - Typed, referentially-consistent instances
  - Live introspection and lexical search
  - Declarative handlers with regex extraction
  - Starlark-scripted actions and Rego rule conditions
  - SQLite persistence across restarts`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newClassCommand())
	rootCmd.AddCommand(newInstanceCommand())
	rootCmd.AddCommand(newHandlerCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newDescribeCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newAuditCommand())

	return rootCmd
}
