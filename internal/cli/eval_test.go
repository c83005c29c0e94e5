package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/claimspec/internal/evaluate"
)

const toySuite = `
paper: toy
convention: convention.yaml
experiments:
  - id: exp1
    claims:
      - spec: {kind: count_unique, col: participant}
        value: {kind: number, data: 2}
      - spec: {kind: mean, col: rt}
        value: {kind: approx_number, data: 2.5, atol: 0.01}
      - spec:
          kind: count_unique
          col: participant
          slice:
            row_filter: {kind: cmp, op: "==", col: cond, value: A}
        value: {kind: number, data: 2}
`

const toyConvention = `
name: toy
columns:
  - name: participant
    description: participant id
  - name: rt
    description: response time (s)
`

// fixture is a suite directory with two datasets: gold reproduces every
// claim, fair lacks cond and disagrees on rt.
type fixture struct {
	dir   string
	suite string
	gold  string
	fair  string
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:   dir,
		suite: filepath.Join(dir, "suite.yaml"),
		gold:  filepath.Join(dir, "data", "gold"),
		fair:  filepath.Join(dir, "data", "fair"),
	}
	writeFixture(t, f.suite, toySuite)
	writeFixture(t, filepath.Join(dir, "convention.yaml"), toyConvention)
	writeFixture(t, filepath.Join(f.gold, "exp1.csv"), "participant,cond,rt\np1,A,1\np1,B,2\np2,A,3\np2,B,4\n")
	writeFixture(t, filepath.Join(f.fair, "exp1.csv"), "participant,rt\np1,1\np2,5\n")
	return f
}

type evalResponse struct {
	Status string     `json:"status"`
	Data   EvalResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func TestEvalAllPass(t *testing.T) {
	f := newFixture(t)
	reports := filepath.Join(f.dir, "reports")

	stdout, stderr, err := execute(t, "eval", f.suite, "-d", "gold="+f.gold, "--report-dir", reports)
	require.NoError(t, err)
	assert.Contains(t, stdout, "paper toy, 3 claims")
	assert.Contains(t, stdout, "✓ all 3 claim evaluations passed")
	assert.Contains(t, stdout, filepath.Join(reports, evaluate.PerClaimFile))
	assert.FileExists(t, filepath.Join(reports, evaluate.SummaryOverallFile))

	// cond is read by claim 2 but missing from the convention
	assert.Contains(t, stderr, "column not in convention")
	assert.Contains(t, stderr, "column=cond")
}

func TestEvalFailuresExitOne(t *testing.T) {
	f := newFixture(t)

	stdout, _, err := execute(t, "--format", "json", "eval", f.suite,
		"-d", "gold="+f.gold, "-d", "fair="+f.fair, "--report-dir", "")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp evalResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeClaimsFailed, resp.Error.Code)
	assert.Equal(t, 6, resp.Data.Evaluations)
	assert.Equal(t, 2, resp.Data.Failed)
	assert.Equal(t, 5, resp.Data.Computable)
	assert.Empty(t, resp.Data.Reports)
	require.Len(t, resp.Data.Failures, 2)
	assert.Equal(t, "fair", resp.Data.Failures[0].Dataset)
	assert.Equal(t, 1, resp.Data.Failures[0].ClaimIndex)
	require.Len(t, resp.Data.Summaries, 2)
	require.Len(t, resp.Data.Undocumented, 1)
	assert.Equal(t, "cond", resp.Data.Undocumented[0].Column)
}

func TestEvalToleranceFlags(t *testing.T) {
	f := newFixture(t)

	// atol 1 absorbs the fair mean of 3 against 2.5; claim 2 still fails
	stdout, _, err := execute(t, "eval", f.suite, "-v",
		"-d", "fair="+f.fair, "--atol", "1", "--report-dir", "")
	require.Error(t, err)
	assert.Contains(t, stdout, "1 of 3 claim evaluations failed")
	assert.Contains(t, stdout, "FAIL exp1/fair #2 count_unique: invalid_value")
	assert.NotContains(t, stdout, "#1 mean")
}

func TestEvalConfigFile(t *testing.T) {
	f := newFixture(t)
	cfg := filepath.Join(f.dir, "claimspec.yaml")
	writeFixture(t, cfg, "atol: 1\nreport_dir: \"\"\nformat: json\n")

	stdout, _, err := execute(t, "--config", cfg, "eval", f.suite, "-d", "fair="+f.fair)
	require.Error(t, err)

	var resp evalResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Empty(t, resp.Data.Reports)
}

func TestEvalCommandErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing suite", []string{"eval", filepath.Join(f.dir, "nope.yaml"), "-d", "gold=" + f.gold}, ErrCodeNotFound},
		{"bad dataset", []string{"eval", f.suite, "-d", "gold"}, ErrCodeDataset},
		{"missing table", []string{"eval", f.suite, "-d", "empty=" + t.TempDir()}, ErrCodeDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append(tt.args, "--report-dir", "")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tt.want+"]")
		})
	}

	_, _, err := execute(t, "eval", f.suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
