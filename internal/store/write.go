package store

import (
	"context"
	"fmt"

	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/ir"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// WriteRun records a run. Rewriting a run with the same ID is a no-op.
func (s *Store) WriteRun(ctx context.Context, run evaluate.Run) error {
	datasets, err := ir.MarshalCanonical(ir.Strings(run.Datasets))
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, paper, started_at, rtol, atol, datasets)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Paper,
		run.StartedAt.UTC().Format(timeLayout),
		run.Tolerance.RTol,
		run.Tolerance.ATol,
		string(datasets),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteResult records one claim's outcome in a run. The run must already
// be recorded. Uses ON CONFLICT DO NOTHING on (run_id, experiment,
// dataset, claim_index), so a repeated write keeps the first result.
func (s *Store) WriteResult(ctx context.Context, runID string, row evaluate.Row) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, paper, experiment, dataset, claim_index, spec_type, spec_fingerprint,
		 expected, observed, coverage_computable, correctness_passed,
		 cmp_ok, cmp_passed, cmp_reason, cmp_detail, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, experiment, dataset, claim_index) DO NOTHING
	`,
		runID,
		row.Paper,
		row.Experiment,
		row.Dataset,
		row.ClaimIndex,
		row.SpecKind,
		row.SpecFingerprint,
		row.Expected,
		row.Observed,
		row.CoverageComputable,
		row.CorrectnessPassed,
		row.CompareOK,
		row.ComparePassed,
		row.Reason,
		row.Detail,
		row.Source,
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
