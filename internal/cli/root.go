package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/claimspec/internal/config"
	"github.com/roach88/claimspec/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the claimspec CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "claimspec",
		Short: "claimspec - claims about datasets, checked as data",
		Long: `claimspec evaluates quantitative claims reported in papers against
reconstructed datasets and reports which claims the data reproduces.

Claims are written in suite files (YAML, JSON or CUE). Each claim pairs
a statistic over a dataset slice with the value the paper reports.`,
		Version:       ir.ToolVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %s\n", ErrCodeGeneric, msg)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (YAML)")

	// Add subcommands
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFingerprintCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig resolves configuration for cmd: defaults, the --config file,
// CLAIMSPEC_* variables, then flags set on the command line.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	l := config.NewLoader()
	if err := l.BindFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	if err := l.BindFlags(cmd.InheritedFlags()); err != nil {
		return config.Config{}, err
	}
	return l.Load(opts.ConfigPath)
}

// setup resolves configuration and builds the formatter for cmd. When the
// configuration itself is invalid, the error is reported with the
// --format flag's formatter.
func setup(opts *RootOptions, cmd *cobra.Command) (config.Config, *OutputFormatter, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return cfg, formatter, fail(formatter, ErrCodeConfig, "invalid configuration", err)
	}
	formatter.Format = cfg.Format
	return cfg, formatter, nil
}

// newLogger returns a text logger on w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
