package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/claimspec/internal/config"
	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Datasets []string

	// IDs and Clock override run identity (for testing).
	// If nil, runs get UUIDv7 IDs and wall-clock start times.
	IDs   evaluate.IDGenerator
	Clock evaluate.Clock
}

// EvalResult is the output of the eval command.
type EvalResult struct {
	RunID        string               `json:"run_id"`
	Paper        string               `json:"paper"`
	Claims       int                  `json:"claims"`
	Evaluations  int                  `json:"evaluations"`
	Computable   int                  `json:"computable"`
	Passed       int                  `json:"passed"`
	Failed       int                  `json:"failed"`
	Summaries    []evaluate.Summary   `json:"summaries"`
	Reports      []string             `json:"reports,omitempty"`
	Ledger       string               `json:"ledger,omitempty"`
	Undocumented []UndocumentedColumn `json:"undocumented,omitempty"`
	Failures     []evaluate.Row       `json:"failures,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <suite>",
		Short: "Evaluate a claim suite against datasets",
		Long: `Evaluate every claim in a suite against one or more datasets.

A dataset is given as name=path. A directory holds one CSV file per
experiment (<path>/<experiment>.csv); a SQLite file (.db, .sqlite,
.sqlite3) holds one table per experiment.

Per-claim and summary CSV reports are written to --report-dir. When
--store names a ledger, the run and every result are recorded there.
Exits 1 when any claim evaluation fails.

Examples:
  claimspec eval suite.yaml --dataset gold=data/gold --dataset fair=data/fair
  claimspec eval suite.cue -d gold=data/gold.db --rtol 0.01 --store ledger.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	d := config.Default()
	cmd.Flags().StringArrayVarP(&opts.Datasets, "dataset", "d", nil, "dataset as name=path (repeatable, required)")
	_ = cmd.MarkFlagRequired("dataset")
	cmd.Flags().Float64("rtol", d.RTol, "relative tolerance")
	cmd.Flags().Float64("atol", d.ATol, "absolute tolerance")
	cmd.Flags().String("engine", d.Engine, "execution engine")
	cmd.Flags().String("store", d.Store, "SQLite ledger to record the run in")
	cmd.Flags().String("report-dir", d.ReportDir, "directory for CSV reports (empty to skip)")
	cmd.Flags().Duration("cache-ttl", d.CacheTTL, "how long loaded datasets stay cached (0 for the whole run)")

	return cmd
}

func runEval(opts *EvalOptions, suitePath string, cmd *cobra.Command) error {
	cfg, formatter, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	s, err := LoadSuite(suitePath)
	if err != nil {
		var le *LoadError
		errors.As(err, &le)
		return fail(formatter, le.Code, "failed to load suite", err)
	}
	undocumented := undocumentedColumns(s)
	for _, c := range undocumented {
		logger.Warn("column not in convention", "experiment", c.Experiment, "claim", c.Claim, "column", c.Column)
	}

	datasets := make([]evaluate.DatasetSpec, 0, len(opts.Datasets))
	for _, arg := range opts.Datasets {
		d, err := evaluate.ParseDatasetSpec(arg)
		if err != nil {
			return fail(formatter, ErrCodeDataset, "invalid dataset", err)
		}
		datasets = append(datasets, d)
	}

	runOpts := []evaluate.Option{
		evaluate.WithTolerance(cfg.Tolerance()),
		evaluate.WithEngine(cfg.Engine),
		evaluate.WithCache(evaluate.NewFrameCache(cfg.CacheTTL)),
		evaluate.WithLogger(logger),
	}
	if opts.IDs != nil {
		runOpts = append(runOpts, evaluate.WithIDGenerator(opts.IDs))
	}
	if opts.Clock != nil {
		runOpts = append(runOpts, evaluate.WithClock(opts.Clock))
	}
	if cfg.Store != "" {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return fail(formatter, ErrCodeStore, "failed to open ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing ledger", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, evaluate.WithLedger(st))
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, err := evaluate.NewRunner(runOpts...).Run(ctx, s, datasets)
	if err != nil {
		if errors.Is(err, evaluate.ErrDatasetMissing) {
			return fail(formatter, ErrCodeDataset, "evaluation failed", err)
		}
		return fail(formatter, ErrCodeGeneric, "evaluation failed", err)
	}
	logger.Info("run complete", "run_id", report.Run.ID, "rows", len(report.Rows), "elapsed", time.Since(start))

	result := EvalResult{
		RunID:        report.Run.ID,
		Paper:        s.Paper,
		Claims:       s.NumClaims(),
		Evaluations:  len(report.Rows),
		Failed:       report.Failed(),
		Summaries:    evaluate.SummarizeOverall(report.Rows),
		Ledger:       cfg.Store,
		Undocumented: undocumented,
		Failures:     []evaluate.Row{},
	}
	for _, row := range report.Rows {
		if row.CoverageComputable {
			result.Computable++
		}
		if row.CorrectnessPassed {
			result.Passed++
		} else {
			result.Failures = append(result.Failures, row)
		}
	}

	if cfg.ReportDir != "" {
		paths, err := evaluate.WriteReports(cfg.ReportDir, report.Rows)
		if err != nil {
			return fail(formatter, ErrCodeWriteFailed, "failed to write reports", err)
		}
		result.Reports = paths
	}

	return outputEval(formatter, result)
}

func outputEval(formatter *OutputFormatter, result EvalResult) error {
	var failure error
	message := fmt.Sprintf("all %d claim evaluations passed", result.Evaluations)
	if result.Failed > 0 {
		message = fmt.Sprintf("%d of %d claim evaluations failed", result.Failed, result.Evaluations)
		failure = NewExitError(ExitFailure, message)
	}

	if formatter.JSON() {
		if failure != nil {
			if err := formatter.Failure(ErrCodeClaimsFailed, message, result); err != nil {
				return err
			}
			return failure
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (paper %s, %d claims)\n", result.RunID, result.Paper, result.Claims)
	for _, sum := range result.Summaries {
		fmt.Fprintf(w, "  %-20s computable %d/%d  passed %d/%d\n",
			sum.Dataset, sum.Computable, sum.Claims, sum.Passed, sum.Claims)
	}
	if formatter.Verbose {
		writeRows(w, result.Failures)
	}
	for _, path := range result.Reports {
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
	if result.Ledger != "" {
		fmt.Fprintf(w, "Recorded in %s\n", result.Ledger)
	}
	if failure != nil {
		_ = formatter.Failure(ErrCodeClaimsFailed, message, nil)
		return failure
	}
	fmt.Fprintf(w, "✓ %s\n", message)
	return nil
}
