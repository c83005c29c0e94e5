// Package evaluate runs claim suites against datasets and reports, per
// claim, whether the claim could be computed (coverage) and whether the
// computed value matches the claimed one (correctness).
//
// A run evaluates every experiment of a suite against every dataset. Each
// claim produces exactly one Row; a spec or comparator that panics is
// isolated to its own row so one bad claim cannot abort its siblings.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/claimspec/internal/claim"
	"github.com/roach88/claimspec/internal/frame"
	"github.com/roach88/claimspec/internal/ir"
	"github.com/roach88/claimspec/internal/spec"
	"github.com/roach88/claimspec/internal/suite"
	"github.com/roach88/claimspec/internal/value"
)

// Row reasons recorded when evaluation itself fails.
const (
	ReasonSpecApplyException = "spec_apply_exception"
	ReasonCompareException   = "compare_exception"
)

// ErrNoDatasets is returned by Run when no dataset is given.
var ErrNoDatasets = errors.New("no datasets to evaluate")

// Run describes one evaluation run.
type Run struct {
	ID        string
	Paper     string
	StartedAt time.Time
	Tolerance value.Tolerance
	Datasets  []string
}

// Row is the outcome of evaluating one claim against one dataset.
type Row struct {
	Paper           string `json:"paper"`
	Experiment      string `json:"experiment"`
	Dataset         string `json:"dataset"`
	ClaimIndex      int    `json:"claim_index"`
	SpecKind        string `json:"spec_type"`
	SpecFingerprint string `json:"spec_fingerprint"`
	Expected        string `json:"expected"`
	Observed        string `json:"observed"`

	// CoverageComputable is true when the comparison was evaluable and the
	// observed value is not Invalid.
	CoverageComputable bool `json:"coverage_computable"`
	// CorrectnessPassed is true when the comparison was evaluable and
	// passed.
	CorrectnessPassed bool `json:"correctness_passed"`

	CompareOK     bool   `json:"cmp_ok"`
	ComparePassed bool   `json:"cmp_passed"`
	Reason        string `json:"cmp_reason"`
	Detail        string `json:"cmp_detail"`
	Source        string `json:"source"`
}

// Report is the result of a run.
type Report struct {
	Run  Run
	Rows []Row
}

// Failed returns the number of rows that did not pass.
func (r *Report) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if !row.CorrectnessPassed {
			n++
		}
	}
	return n
}

// Ledger persists runs and their rows.
type Ledger interface {
	WriteRun(ctx context.Context, run Run) error
	WriteResult(ctx context.Context, runID string, row Row) error
}

// Runner evaluates suites. It is not safe for concurrent Runs when a
// Ledger is attached.
type Runner struct {
	tol       value.Tolerance
	values    *value.Registry
	cache     *FrameCache
	ids       IDGenerator
	clock     Clock
	ledger    Ledger
	logger    *slog.Logger
	applyOpts []spec.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithTolerance sets the global comparison tolerance.
func WithTolerance(tol value.Tolerance) Option {
	return func(r *Runner) { r.tol = tol }
}

// WithValues compares with a custom value registry.
func WithValues(reg *value.Registry) Option {
	return func(r *Runner) { r.values = reg }
}

// WithCache shares a frame cache between runners.
func WithCache(c *FrameCache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithIDGenerator sets the run ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// WithClock sets the clock used to stamp runs.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithLedger records the run and every row.
func WithLedger(l Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithEngine selects the spec execution engine.
func WithEngine(name string) Option {
	return func(r *Runner) { r.applyOpts = append(r.applyOpts, spec.WithEngine(name)) }
}

// NewRunner creates a runner with zero tolerance, the standard value
// registry, an unbounded frame cache and UUIDv7 run IDs.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		values: value.Standard(),
		cache:  NewFrameCache(0),
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every experiment of s against every dataset, experiments
// in suite order and datasets in the given order. A dataset without a
// table for an experiment fails the run.
func (r *Runner) Run(ctx context.Context, s *suite.Suite, datasets []DatasetSpec) (*Report, error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	run := Run{
		ID:        r.ids.Generate(),
		Paper:     s.Paper,
		StartedAt: r.clock.Now().UTC(),
		Tolerance: r.tol,
		Datasets:  names,
	}
	log := r.logger.With("run_id", run.ID, "paper", s.Paper)

	if r.ledger != nil {
		if err := r.ledger.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	report := &Report{Run: run}
	for _, exp := range s.Experiments {
		for _, d := range datasets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := r.cache.Load(ctx, d, exp.ID)
			if err != nil {
				return nil, err
			}

			rows := r.Evaluate(Row{
				Paper:      s.Paper,
				Experiment: exp.ID,
				Dataset:    d.Name,
				Source:     d.Source(exp.ID),
			}, exp.Claims, f)

			if r.ledger != nil {
				for _, row := range rows {
					if err := r.ledger.WriteResult(ctx, run.ID, row); err != nil {
						return nil, fmt.Errorf("record result: %w", err)
					}
				}
			}
			computable, passed := tally(rows)
			log.Info("evaluated dataset",
				"experiment", exp.ID,
				"dataset", d.Name,
				"claims", len(rows),
				"computable", computable,
				"passed", passed,
			)
			report.Rows = append(report.Rows, rows...)
		}
	}
	return report, nil
}

// Evaluate applies each claim's spec to f and compares the claimed value
// with the observed one. base supplies the paper, experiment, dataset and
// source fields of every row.
func (r *Runner) Evaluate(base Row, claims []*claim.Claim, f *frame.Frame) []Row {
	rows := make([]Row, len(claims))
	for i, c := range claims {
		row := base
		row.ClaimIndex = i
		rows[i] = r.evaluateClaim(row, c, f)
		r.logger.Debug("evaluated claim",
			"experiment", row.Experiment,
			"dataset", row.Dataset,
			"claim", i,
			"spec", rows[i].SpecKind,
			"passed", rows[i].CorrectnessPassed,
			"reason", rows[i].Reason,
		)
	}
	return rows
}

func (r *Runner) evaluateClaim(row Row, c *claim.Claim, f *frame.Frame) Row {
	s := c.Spec()
	expected := c.Value()

	row.SpecKind = s.Kind()
	if fp, err := spec.Fingerprint(s); err == nil {
		row.SpecFingerprint = fp
	}
	row.Expected = encodeJSON(expected)

	observed, err := safely(func() value.Result { return spec.Apply(s, f, r.applyOpts...) })
	if err != nil {
		row.Reason = ReasonSpecApplyException
		row.Detail = exceptionDetail(err)
		return row
	}
	row.Observed = encodeJSON(observed)

	cmp, err := safely(func() value.Comparison { return r.values.Compare(expected, observed, r.tol) })
	if err != nil {
		row.Reason = ReasonCompareException
		row.Detail = exceptionDetail(err)
		return row
	}

	row.CompareOK = cmp.OK
	row.ComparePassed = cmp.Passed != nil && *cmp.Passed
	row.Reason = cmp.Reason
	if cmp.Detail != nil {
		row.Detail = cmp.DetailJSON()
	}
	row.CoverageComputable = cmp.OK && !value.IsInvalid(observed)
	row.CorrectnessPassed = cmp.Succeeded()
	return row
}

// safely runs fn, turning a panic into an error.
func safely[T any](fn func() T) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return fn(), nil
}

func exceptionDetail(err error) string {
	return string(ir.MustMarshalCanonical(ir.Object(
		ir.O("error", ir.IRString("panic")),
		ir.O("message", ir.IRString(err.Error())),
	)))
}

func encodeJSON(r value.Result) string {
	data, err := ir.MarshalCanonical(value.EncodeResult(r))
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(data)
}

func tally(rows []Row) (computable, passed int) {
	for _, row := range rows {
		if row.CoverageComputable {
			computable++
		}
		if row.CorrectnessPassed {
			passed++
		}
	}
	return computable, passed
}
