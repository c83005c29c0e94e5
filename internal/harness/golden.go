package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/claimspec/internal/ir"
)

// Snapshot returns the canonical JSON of a scenario's recorded outcome:
// the run's paper and datasets, then per row the claim coordinates, spec
// kind and comparison outcome.
//
// Fingerprints, encoded values and sources are left out so a snapshot
// survives moving the fixtures and stays readable in a diff.
func Snapshot(name string, result *Result) ([]byte, error) {
	rows := make([]any, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = map[string]any{
			"experiment":          r.Experiment,
			"dataset":             r.Dataset,
			"claim_index":         r.ClaimIndex,
			"spec_type":           r.SpecKind,
			"cmp_ok":              r.CompareOK,
			"cmp_passed":          r.ComparePassed,
			"cmp_reason":          r.Reason,
			"coverage_computable": r.CoverageComputable,
			"correctness_passed":  r.CorrectnessPassed,
		}
	}
	datasets := make([]any, len(result.Run.Datasets))
	for i, d := range result.Run.Datasets {
		datasets[i] = d
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"paper":         result.Run.Paper,
		"datasets":      datasets,
		"rows":          rows,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
