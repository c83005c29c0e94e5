package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/store"
	"github.com/roach88/claimspec/internal/suite"
	"github.com/roach88/claimspec/internal/testutil"
)

// RunIDPrefix prefixes the fixed run ID of every scenario run.
const RunIDPrefix = "scenario-"

// Harness runs scenarios against a ledger with deterministic run IDs and
// timestamps.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory ledger. Execution flow:
//  1. Load the suite
//  2. Evaluate it against every dataset, recording into the ledger
//  3. Read the run back and check it matches what was evaluated
//  4. Evaluate the assertions against the recorded rows
//
// An error is returned when the scenario cannot run at all; failed
// assertions are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(testutil.Epoch, time.Second),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	s, err := suite.Load(scenario.Suite)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite: %w", err)
	}

	runner := evaluate.NewRunner(
		evaluate.WithTolerance(scenario.ValueTolerance()),
		evaluate.WithIDGenerator(testutil.NewSequenceIDs(RunIDPrefix+scenario.Name)),
		evaluate.WithClock(h.clock),
		evaluate.WithLedger(h.store),
		evaluate.WithLogger(h.logger),
	)
	report, err := runner.Run(ctx, s, scenario.DatasetSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to run scenario: %w", err)
	}

	result := NewResult()
	result.Run, err = h.store.ReadRun(ctx, report.Run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	result.Rows, err = h.store.ReadResults(ctx, report.Run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	if diff := cmp.Diff(report.Rows, result.Rows, cmpopts.EquateEmpty()); diff != "" {
		result.AddError(fmt.Sprintf("ledger rows differ from evaluated rows (-evaluated +recorded):\n%s", diff))
	}
	for _, msg := range EvaluateAssertions(result.Rows, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
