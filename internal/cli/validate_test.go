package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *CLIError        `json:"error"`
}

func TestValidateValidSuite(t *testing.T) {
	f := newFixture(t)

	stdout, _, err := execute(t, "validate", f.suite)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Suite valid: toy (1 experiments, 3 claims)")
	assert.Contains(t, stdout, `warning W101: exp1 claim 2: column "cond" not in convention`)
}

func TestValidateValidSuiteJSON(t *testing.T) {
	f := newFixture(t)

	stdout, _, err := execute(t, "--format", "json", "validate", f.suite)
	require.NoError(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Claims)
	assert.Equal(t, filepath.Join(f.dir, "convention.yaml"), resp.Data.Convention)
	assert.Equal(t, []UndocumentedColumn{
		{Code: WarnUndocumentedColumn, Experiment: "exp1", Claim: 2, Column: "cond"},
	}, resp.Data.Warnings)
}

func TestValidateVerboseOutput(t *testing.T) {
	f := newFixture(t)

	_, stderr, err := execute(t, "-v", "validate", f.suite)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Loaded 3 claim(s) in 1 experiment(s)")
}

func TestValidateInvalidClaim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	writeFixture(t, path, `
paper: toy
experiments:
  - id: exp1
    claims:
      - spec: {kind: count_unique, col: participant}
        value: {kind: number, data: 2}
      - spec: {kind: percentile, col: rt}
        value: {kind: number, data: 1}
`)

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, "exp1 claim 1")
	assert.Contains(t, stdout, ErrCodeInvalidClaim)

	stdout, _, err = execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	require.NotNil(t, resp.Data.Errors[0].Claim)
	assert.Equal(t, 1, *resp.Data.Errors[0].Claim)
	assert.Equal(t, "exp1", resp.Data.Errors[0].Experiment)
}

func TestValidateCUEError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.cue")
	writeFixture(t, path, "paper: \"toy\" & \"other\"\nexperiments: []\n")

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeCUEFailed)
	assert.Contains(t, stdout, "conflicting values")
}

func TestValidateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, filepath.Join(dir, "suite.toml"), "paper = 'toy'\n")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), ErrCodeNotFound},
		{"unknown extension", filepath.Join(dir, "suite.toml"), ErrCodeUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tt.code+"]")
		})
	}
}

func TestClassifyLoadError(t *testing.T) {
	_, err := LoadSuite(filepath.Join(t.TempDir(), "missing.json"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
	assert.True(t, le.commandError())
	assert.Nil(t, le.Claim)
}
