package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Spec string
}

// RunListing is one recorded run.
type RunListing struct {
	ID        string   `json:"id"`
	Paper     string   `json:"paper"`
	StartedAt string   `json:"started_at"`
	RTol      float64  `json:"rtol"`
	ATol      float64  `json:"atol"`
	Datasets  []string `json:"datasets"`
}

// RunResults is a recorded run with its summaries and results.
type RunResults struct {
	Run          RunListing         `json:"run"`
	ByExperiment []evaluate.Summary `json:"summary_by_experiment"`
	Overall      []evaluate.Summary `json:"summary_overall"`
	Results      []evaluate.Row     `json:"results"`
}

// SpecHistory is every recorded result of one spec.
type SpecHistory struct {
	Fingerprint string         `json:"spec_fingerprint"`
	Results     []evaluate.Row `json:"results"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "Query runs recorded in the ledger",
		Long: `Query the evaluation ledger written by eval --store.

With no arguments, lists recorded runs in start order. With a run ID,
shows that run's summaries (and, with --verbose, every result). With
--spec, shows every recorded result of the spec with that fingerprint
across runs.

Examples:
  claimspec results --store ledger.db
  claimspec results --store ledger.db 01890a5d-ac96-774b-bcce-b302099a8057
  claimspec results --store ledger.db --spec a101abdf... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runResults(opts, runID, cmd)
		},
	}

	cmd.Flags().String("store", "", "SQLite ledger to read")
	cmd.Flags().StringVar(&opts.Spec, "spec", "", "spec fingerprint to trace across runs")

	return cmd
}

func runResults(opts *ResultsOptions, runID string, cmd *cobra.Command) error {
	cfg, formatter, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if cfg.Store == "" {
		return fail(formatter, ErrCodeConfig, "no ledger: set --store or CLAIMSPEC_STORE", nil)
	}
	if runID != "" && opts.Spec != "" {
		return fail(formatter, ErrCodeGeneric, "give a run ID or --spec, not both", nil)
	}
	if _, err := os.Stat(cfg.Store); err != nil {
		return fail(formatter, ErrCodeNotFound, "ledger not found", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fail(formatter, ErrCodeStore, "failed to open ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.Spec != "":
		return showSpecHistory(ctx, formatter, st, opts.Spec)
	case runID != "":
		return showRun(ctx, formatter, st, runID)
	default:
		return listRuns(ctx, formatter, st)
	}
}

func listing(run evaluate.Run) RunListing {
	return RunListing{
		ID:        run.ID,
		Paper:     run.Paper,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339Nano),
		RTol:      run.Tolerance.RTol,
		ATol:      run.Tolerance.ATol,
		Datasets:  run.Datasets,
	}
}

func listRuns(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	runs, err := st.ReadRuns(ctx)
	if err != nil {
		return fail(formatter, ErrCodeStore, "failed to read runs", err)
	}
	listings := make([]RunListing, len(runs))
	for i, run := range runs {
		listings[i] = listing(run)
	}

	if formatter.JSON() {
		return formatter.Success(listings)
	}
	w := formatter.Writer
	if len(listings) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, l := range listings {
		fmt.Fprintf(w, "%s  %s  %s  datasets=%v\n", l.StartedAt, l.ID, l.Paper, l.Datasets)
	}
	return nil
}

func showRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return fail(formatter, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return fail(formatter, ErrCodeStore, "failed to read run", err)
	}
	rows, err := st.ReadResults(ctx, runID)
	if err != nil {
		return fail(formatter, ErrCodeStore, "failed to read results", err)
	}

	result := RunResults{
		Run:          listing(run),
		ByExperiment: evaluate.SummarizeByExperiment(rows),
		Overall:      evaluate.SummarizeOverall(rows),
		Results:      rows,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (paper %s, started %s, rtol=%g atol=%g)\n",
		run.ID, run.Paper, result.Run.StartedAt, run.Tolerance.RTol, run.Tolerance.ATol)
	fmt.Fprintln(w, "=== By experiment ===")
	writeSummaries(w, result.ByExperiment, true)
	fmt.Fprintln(w, "=== Overall ===")
	writeSummaries(w, result.Overall, false)
	if formatter.Verbose {
		fmt.Fprintln(w, "=== Results ===")
		writeRows(w, rows)
	}
	return nil
}

func showSpecHistory(ctx context.Context, formatter *OutputFormatter, st *store.Store, fingerprint string) error {
	rows, err := st.ReadSpecHistory(ctx, fingerprint)
	if err != nil {
		return fail(formatter, ErrCodeStore, "failed to read spec history", err)
	}
	if formatter.JSON() {
		return formatter.Success(SpecHistory{Fingerprint: fingerprint, Results: rows})
	}

	w := formatter.Writer
	if len(rows) == 0 {
		fmt.Fprintf(w, "No results recorded for spec: %s\n", truncateID(fingerprint))
		return nil
	}
	fmt.Fprintf(w, "Spec %s (%s)\n", truncateID(fingerprint), rows[0].SpecKind)
	writeRows(w, rows)
	return nil
}

func writeSummaries(w io.Writer, sums []evaluate.Summary, byExperiment bool) {
	if len(sums) == 0 {
		fmt.Fprintln(w, "  (no results)")
		return
	}
	for _, s := range sums {
		name := s.Dataset
		if byExperiment {
			name = s.Experiment + "/" + s.Dataset
		}
		fmt.Fprintf(w, "  %-24s claims %d  computable %.2f  passed %.2f  compare_ok %.2f\n",
			name, s.Claims, s.ComputableRate(), s.PassRate(), s.CompareOKRate())
	}
}

func writeRows(w io.Writer, rows []evaluate.Row) {
	for _, r := range rows {
		status := "PASS"
		if !r.CorrectnessPassed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  %s %s/%s #%d %s", status, r.Experiment, r.Dataset, r.ClaimIndex, r.SpecKind)
		if r.Reason != "" {
			fmt.Fprintf(w, ": %s", r.Reason)
		}
		fmt.Fprintln(w)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
