package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/claimspec/internal/spec"
)

type fingerprintResponse struct {
	Status string             `json:"status"`
	Data   []ClaimFingerprint `json:"data"`
}

func TestFingerprintJSON(t *testing.T) {
	f := newFixture(t)

	stdout, _, err := execute(t, "--format", "json", "fingerprint", f.suite)
	require.NoError(t, err)

	var resp fingerprintResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 3)

	want, err := spec.Fingerprint(spec.CountUnique{Col: "participant"})
	require.NoError(t, err)
	assert.Equal(t, want, resp.Data[0].Spec)
	assert.Equal(t, "count_unique", resp.Data[0].SpecKind)
	assert.Len(t, resp.Data[0].Fingerprint, 64)
	assert.Empty(t, resp.Data[0].Canonical)

	// same kind and column, different slice
	assert.NotEqual(t, resp.Data[0].Spec, resp.Data[2].Spec)
}

func TestFingerprintIgnoresFormatting(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "a.yaml")
	jsonPath := filepath.Join(dir, "b.json")
	writeFixture(t, yamlPath, `
paper: toy
experiments:
  - id: exp1
    claims:
      - spec: {col: rt, kind: mean, slice: {group_by: [b, a, b]}}
        value: {kind: number, data: 2.50}
`)
	writeFixture(t, jsonPath, `{"paper": "toy", "experiments": [{"id": "exp1", "claims": [
  {"value": {"data": 2.5, "kind": "number"},
   "spec": {"kind": "mean", "slice": {"group_by": ["a", "b"]}, "col": "rt"}}]}]}`)

	a, _, err := execute(t, "fingerprint", yamlPath)
	require.NoError(t, err)
	b, _, err := execute(t, "fingerprint", jsonPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprintCanonicalAndFilter(t *testing.T) {
	f := newFixture(t)

	stdout, _, err := execute(t, "fingerprint", f.suite, "--experiment", "exp1", "--canonical")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "exp1\t0\tcount_unique\t"))
	assert.Contains(t, lines[1], `"spec":{"col":"participant","kind":"count_unique"`)

	stdout, _, err = execute(t, "fingerprint", f.suite, "--experiment", "exp9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, `experiment "exp9" not in suite`)
}
