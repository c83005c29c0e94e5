package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/ir"
)

const resultColumns = `paper, experiment, dataset, claim_index, spec_type, spec_fingerprint,
	expected, observed, coverage_computable, correctness_passed,
	cmp_ok, cmp_passed, cmp_reason, cmp_detail, source`

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (evaluate.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, paper, started_at, rtol, atol, datasets
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluate.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ReadRuns returns every run ordered by start time, ties broken by ID.
// Returns an empty slice (not nil) when the ledger holds no runs.
func (s *Store) ReadRuns(ctx context.Context) ([]evaluate.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, paper, started_at, rtol, atol, datasets
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []evaluate.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadResults returns a run's results in write order.
// Returns an empty slice (not nil) if the run has no results.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]evaluate.Row, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadSpecHistory returns every recorded result of the spec with the given
// fingerprint, across runs, in write order.
func (s *Store) ReadSpecHistory(ctx context.Context, fingerprint string) ([]evaluate.Row, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE spec_fingerprint = ?
		ORDER BY seq ASC
	`, fingerprint)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]evaluate.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []evaluate.Row{}
	for rows.Next() {
		var r evaluate.Row
		err := rows.Scan(
			&r.Paper,
			&r.Experiment,
			&r.Dataset,
			&r.ClaimIndex,
			&r.SpecKind,
			&r.SpecFingerprint,
			&r.Expected,
			&r.Observed,
			&r.CoverageComputable,
			&r.CorrectnessPassed,
			&r.CompareOK,
			&r.ComparePassed,
			&r.Reason,
			&r.Detail,
			&r.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (evaluate.Run, error) {
	var (
		run       evaluate.Run
		startedAt string
		datasets  string
	)
	if err := sc.Scan(&run.ID, &run.Paper, &startedAt, &run.Tolerance.RTol, &run.Tolerance.ATol, &datasets); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return run, fmt.Errorf("run %s: started_at: %w", run.ID, err)
	}
	run.StartedAt = t

	arr, err := ir.Unmarshal([]byte(datasets))
	if err != nil {
		return run, fmt.Errorf("run %s: datasets: %w", run.ID, err)
	}
	names, err := ir.IRObject{"datasets": arr}.StringList("datasets")
	if err != nil {
		return run, fmt.Errorf("run %s: datasets: %w", run.ID, err)
	}
	run.Datasets = names
	return run, nil
}

// Summaries re-derives the per-experiment and overall summaries of a
// recorded run.
func (s *Store) Summaries(ctx context.Context, runID string) (byExperiment, overall []evaluate.Summary, err error) {
	rows, err := s.ReadResults(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return evaluate.SummarizeByExperiment(rows), evaluate.SummarizeOverall(rows), nil
}

var _ evaluate.Ledger = (*Store)(nil)
