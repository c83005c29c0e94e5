package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/toy_audit.yaml")
	require.NoError(t, err)

	assert.Equal(t, "toy_audit", s.Name)
	assert.Equal(t, filepath.Join("testdata", "suites", "toy.yaml"), s.Suite)
	require.Len(t, s.Datasets, 2)
	assert.Equal(t, Dataset{Name: "gold", Path: filepath.Join("testdata", "data", "gold")}, s.Datasets[0])
	assert.Len(t, s.Assertions, 5)
	assert.Equal(t, AssertClaimOutcome, s.Assertions[1].Type)
	require.NotNil(t, s.Assertions[1].Claim)
	assert.Equal(t, 1, *s.Assertions[1].Claim)

	specs := s.DatasetSpecs()
	assert.Equal(t, "fair", specs[1].Name)
	assert.Zero(t, s.ValueTolerance())
}

func TestLoadScenarioTolerance(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/toy_tolerant.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.ValueTolerance().ATol)
	assert.Equal(t, 0.0, s.ValueTolerance().RTol)
}

func TestLoadScenarioErrors(t *testing.T) {
	suitePath, err := filepath.Abs("testdata/suites/toy.yaml")
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\nsuite: " + suitePath + "\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "suite: " + suitePath + "\n",
			wantErr: "name is required",
		},
		{
			name:    "missing suite",
			content: "name: x\n",
			wantErr: "suite is required",
		},
		{
			name:    "suite not found",
			content: "name: x\nsuite: nope.yaml\n",
			wantErr: "suite file not found",
		},
		{
			name:    "no datasets",
			content: "name: x\nsuite: " + suitePath + "\n",
			wantErr: "datasets list is required",
		},
		{
			name: "duplicate dataset",
			content: "name: x\nsuite: " + suitePath + "\ndatasets:\n" +
				"  - {name: a, path: d}\n  - {name: a, path: e}\n",
			wantErr: "duplicate name",
		},
		{
			name: "negative tolerance",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"tolerance: {atol: -1}\n",
			wantErr: "tolerance must be non-negative",
		},
		{
			name:    "no assertions",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n",
			wantErr: "assertions list is required",
		},
		{
			name: "unknown assertion",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: trace_count}]\n",
			wantErr: `unknown assertion type "trace_count"`,
		},
		{
			name: "claim outcome without claim",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: claim_outcome, experiment: e, dataset: a, passed: true}]\n",
			wantErr: "claim are required",
		},
		{
			name: "claim outcome without expectation",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: claim_outcome, experiment: e, dataset: a, claim: 0}]\n",
			wantErr: "needs passed, computable or reason",
		},
		{
			name: "coverage out of range",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: coverage, min_rate: 2}]\n",
			wantErr: "min_rate in [0, 1]",
		},
		{
			name: "pass count without count",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: pass_count}]\n",
			wantErr: "count is required for pass_count",
		},
		{
			name: "reason count without reason",
			content: "name: x\nsuite: " + suitePath + "\ndatasets: [{name: a, path: d}]\n" +
				"assertions: [{type: reason_count, count: 1}]\n",
			wantErr: "reason is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b.yaml"), resolve("a", "b.yaml"))
	assert.Equal(t, "/abs/b.yaml", resolve("a", "/abs/b.yaml"))
	assert.Equal(t, "", resolve("a", ""))
}
