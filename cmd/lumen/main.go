// Package main provides the CLI entry point for the Lumen dashboard engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yougis/lumen/internal/cli"
	"github.com/yougis/lumen/internal/config"
	"github.com/yougis/lumen/internal/dashboard"
	"github.com/yougis/lumen/internal/logger"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Run command flags
	once bool

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen - Declarative dashboard engine",
	Long: `Lumen assembles monitoring dashboards from declarative specifications.

A specification (JSON/YAML format) declares data sources, filters,
transforms and views; lumen validates it, wires the pipelines and keeps
the computed datasets fresh as filters change and sources refresh.

Examples:
  # Validate a dashboard specification
  lumen validate dashboard.yaml

  # Run a dashboard
  lumen run dashboard.yaml

  # Print the specification schema
  lumen schema`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetTextOutput(slog.LevelDebug)
		} else if quiet {
			logger.SetTextOutput(slog.LevelError)
		} else {
			logger.SetTextOutput(slog.LevelInfo)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <spec-file>",
	Short: "Validate a dashboard specification file",
	Long: `Validate a dashboard specification file against the schema.

Supports both JSON and YAML formats, auto-detected from the file
extension (.json, .yaml, .yml).

Exit codes:
  0 - Specification is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  lumen validate dashboard.yaml
  lumen validate --verbose dashboard.json`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <spec-file>",
	Short: "Run a dashboard from a specification file",
	Long: `Run the dashboard defined in the specification file.

The specification is first validated against the schema. If validation
fails, the dashboard will not start. Without --once the process keeps
running, driving periodic refreshes, until interrupted.

Flags:
  --once   Compute and render every view once, then exit

Exit codes:
  0 - Dashboard ran and shut down cleanly
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors

Examples:
  lumen run dashboard.yaml
  lumen run --once dashboard.json`,
	Args: cobra.ExactArgs(1),
	Run:  runDashboard,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the dashboard specification schema",
	Long:  "Print the embedded JSON schema that specifications are validated against.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(string(config.GetEmbeddedSchema()))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	runCmd.Flags().BoolVar(&once, "once", false, "Compute and render every view once, then exit")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSpec parses, validates and converts a specification file, exiting with
// the appropriate code on failure.
func loadSpec(path string) *config.DashboardSpec {
	result := config.ParseFile(path)
	if !result.IsValid() {
		cli.PrintParseErrors(result.Errors, verbose)
		os.Exit(ExitParseError)
	}

	validation := config.ValidateSpec(result.Data)
	if !validation.Valid {
		cli.PrintValidationErrors(validation.Errors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	spec, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(ExitValidationError)
	}
	return spec
}

func runValidate(_ *cobra.Command, args []string) {
	specPath := args[0]

	if !quiet {
		fmt.Printf("Validating specification: %s\n", specPath)
	}

	spec := loadSpec(specPath)

	if !quiet {
		fmt.Println("✓ Specification is valid")
		if verbose {
			cli.PrintSpecSummary(spec, cli.OutputOptions{Verbose: verbose, Quiet: quiet})
		}
	}
	os.Exit(ExitSuccess)
}

func runDashboard(_ *cobra.Command, args []string) {
	specPath := args[0]

	if !quiet {
		fmt.Printf("Loading dashboard specification: %s\n", specPath)
	}

	spec := loadSpec(specPath)

	if !quiet {
		fmt.Println("✓ Specification loaded successfully")
		cli.PrintSpecSummary(spec, cli.OutputOptions{Verbose: verbose, Quiet: quiet})
	}

	d, err := dashboard.New(spec, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to assemble dashboard: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		if err := d.Render(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Dashboard rendering failed: %v\n", err)
			os.Exit(ExitRuntimeError)
		}
		if !quiet {
			fmt.Println("✓ Dashboard rendered")
		}
		os.Exit(ExitSuccess)
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "✗ Dashboard failed: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if !quiet {
		fmt.Println("✓ Dashboard shut down")
	}
	os.Exit(ExitSuccess)
}
