package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditScenario = `
name: audit
description: "gold reproduces the toy suite"
suite: ../suite.yaml
datasets:
  - name: gold
    path: ../data/gold
  - name: fair
    path: ../data/fair
assertions:
  - type: pass_count
    dataset: gold
    count: 3
  - type: claim_outcome
    experiment: exp1
    dataset: fair
    claim: 1
    passed: false
    reason: value_mismatch
`

const strictScenario = `
name: strict
description: "expects fair to reproduce everything"
suite: ../suite.yaml
datasets:
  - name: fair
    path: ../data/fair
assertions:
  - type: pass_count
    count: 3
`

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

// scenarioDir writes scenarios next to the toy fixture and returns their
// directory.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	f := newFixture(t)
	dir := filepath.Join(f.dir, "scenarios")
	for name, content := range scenarios {
		writeFixture(t, filepath.Join(dir, name), content)
	}
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"audit.yaml": auditScenario})

	stdout, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ audit")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"audit.yaml":  auditScenario,
		"strict.yaml": strictScenario,
	})

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ strict")
	assert.Contains(t, stdout, "assertion 0 (pass_count)")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")

	stdout, _, err = execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "audit", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.False(t, resp.Data.Scenarios[1].Pass)
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"audit.yaml":  auditScenario,
		"strict.yaml": strictScenario,
	})

	stdout, _, err := execute(t, "--format", "json", "test", dir, "--filter", "aud*")
	require.NoError(t, err)
	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)

	_, _, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandGolden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"audit.yaml": auditScenario})
	golden := filepath.Join(dir, "golden", "audit.golden")

	stdout, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ audit (golden updated)")
	require.FileExists(t, golden)

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"audit"`)

	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"rows":[]}`), 0o644))
	stdout, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "snapshot does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nflow: []\n"})

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommandNoScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTestCommandMissingDir(t *testing.T) {
	stdout, _, err := execute(t, "test", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "audit.golden"), goldenFilePath(filepath.Join("s", "audit.yaml")))
}
