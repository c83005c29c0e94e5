package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/claimspec/internal/suite"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                 `json:"valid"`
	Paper       string               `json:"paper,omitempty"`
	Experiments int                  `json:"experiments"`
	Claims      int                  `json:"claims"`
	Convention  string               `json:"convention,omitempty"`
	Warnings    []UndocumentedColumn `json:"warnings,omitempty"`
	Errors      []*LoadError         `json:"errors,omitempty"`
}

// UndocumentedColumn is a column a claim reads that the suite's
// convention does not document.
type UndocumentedColumn struct {
	Code       string `json:"code"`
	Experiment string `json:"experiment"`
	Claim      int    `json:"claim"`
	Column     string `json:"column"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite>",
		Short: "Validate a claim suite without evaluating it",
		Long: `Decode every claim in a suite without touching any dataset.

Checks syntax (YAML, JSON or CUE), that every spec and value kind is
known, and that each claim is well formed. When the suite names a
convention, columns the convention does not document are reported as
warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, suitePath string, cmd *cobra.Command) error {
	_, formatter, err := setup(opts, cmd)
	if err != nil {
		return err
	}

	s, err := LoadSuite(suitePath)
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			return fail(formatter, ErrCodeGeneric, "failed to load suite", err)
		}
		if le.commandError() {
			return fail(formatter, le.Code, "failed to load suite", err)
		}
		return outputValidationErrors(formatter, []*LoadError{le})
	}

	formatter.VerboseLog("Loaded %d claim(s) in %d experiment(s) from %s", s.NumClaims(), len(s.Experiments), suitePath)

	result := ValidationResult{
		Valid:       true,
		Paper:       s.Paper,
		Experiments: len(s.Experiments),
		Claims:      s.NumClaims(),
		Convention:  s.ConventionPath,
		Warnings:    undocumentedColumns(s),
	}
	return outputValidateSuccess(formatter, result)
}

// undocumentedColumns lists the claim columns missing from the suite's
// convention. Suites without a convention yield nil.
func undocumentedColumns(s *suite.Suite) []UndocumentedColumn {
	var out []UndocumentedColumn
	for _, c := range s.Undocumented(s.Convention) {
		out = append(out, UndocumentedColumn{
			Code:       WarnUndocumentedColumn,
			Experiment: c.Experiment,
			Claim:      c.Index,
			Column:     c.Column,
		})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning %s: %s claim %d: column %q not in convention\n",
			warn.Code, warn.Experiment, warn.Claim, warn.Column)
	}
	fmt.Fprintf(w, "✓ Suite valid: %s (%d experiments, %d claims)\n", result.Paper, result.Experiments, result.Claims)
	return nil
}

// outputValidationErrors outputs validation errors and returns ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, errs []*LoadError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, ValidationResult{Errors: errs}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range errs {
		switch {
		case e.Claim != nil:
			fmt.Fprintf(w, "%s claim %d\n", e.Experiment, *e.Claim)
		case e.Line > 0:
			fmt.Fprintf(w, "line %d\n", e.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
	}
	return failure
}
