package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/claimspec/internal/evaluate"
	"github.com/roach88/claimspec/internal/value"
)

// Scenario is an audit of one suite against fixed datasets.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario pins down.
	Description string `yaml:"description"`

	// Suite is the claim suite file, relative to the scenario file.
	Suite string `yaml:"suite"`

	// Datasets are evaluated in order, each against every experiment.
	Datasets []Dataset `yaml:"datasets"`

	// Tolerance is the global tolerance of the run. Zero when omitted.
	Tolerance Tolerance `yaml:"tolerance"`

	// Assertions are checked against the recorded rows.
	Assertions []Assertion `yaml:"assertions"`
}

// Dataset names a dataset directory or SQLite file.
type Dataset struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Tolerance mirrors value.Tolerance in scenario files.
type Tolerance struct {
	RTol float64 `yaml:"rtol"`
	ATol float64 `yaml:"atol"`
}

// Assertion checks the rows of a scenario run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Experiment and Dataset select rows. Required by claim_outcome,
	// optional filters for the counting assertions.
	Experiment string `yaml:"experiment,omitempty"`
	Dataset    string `yaml:"dataset,omitempty"`

	// Claim is the claim index within its experiment (claim_outcome).
	Claim *int `yaml:"claim,omitempty"`

	// Passed and Computable are the expected outcome flags (claim_outcome).
	Passed     *bool `yaml:"passed,omitempty"`
	Computable *bool `yaml:"computable,omitempty"`

	// Reason is the expected comparison reason (claim_outcome,
	// reason_count). Passing rows have no reason.
	Reason string `yaml:"reason,omitempty"`

	// Count is the expected number of rows (pass_count, reason_count).
	Count *int `yaml:"count,omitempty"`

	// MinRate is the lowest acceptable coverage rate (coverage).
	MinRate *float64 `yaml:"min_rate,omitempty"`
}

// Assertion type constants.
const (
	AssertClaimOutcome = "claim_outcome"
	AssertPassCount    = "pass_count"
	AssertCoverage     = "coverage"
	AssertReasonCount  = "reason_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving the suite
// and dataset paths against the scenario's directory. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Suite = resolve(base, scenario.Suite)
	for i := range scenario.Datasets {
		scenario.Datasets[i].Path = resolve(base, scenario.Datasets[i].Path)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// DatasetSpecs converts the scenario datasets for evaluate.Runner.
func (s *Scenario) DatasetSpecs() []evaluate.DatasetSpec {
	out := make([]evaluate.DatasetSpec, len(s.Datasets))
	for i, d := range s.Datasets {
		out[i] = evaluate.DatasetSpec{Name: d.Name, Path: d.Path}
	}
	return out
}

// ValueTolerance returns the run tolerance.
func (s *Scenario) ValueTolerance() value.Tolerance {
	return value.Tolerance{RTol: s.Tolerance.RTol, ATol: s.Tolerance.ATol}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Suite == "" {
		return errors.New("suite is required")
	}
	if _, err := os.Stat(s.Suite); err != nil {
		return fmt.Errorf("suite file not found: %s", s.Suite)
	}
	if len(s.Datasets) == 0 {
		return errors.New("datasets list is required and must be non-empty")
	}
	seen := make(map[string]bool, len(s.Datasets))
	for i, d := range s.Datasets {
		if d.Name == "" || d.Path == "" {
			return fmt.Errorf("datasets[%d]: name and path are required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("datasets[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
	}
	if s.Tolerance.RTol < 0 || s.Tolerance.ATol < 0 {
		return errors.New("tolerance must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertClaimOutcome:
		if a.Experiment == "" || a.Dataset == "" || a.Claim == nil {
			return fmt.Errorf("assertions[%d]: experiment, dataset and claim are required for claim_outcome", index)
		}
		if a.Passed == nil && a.Computable == nil && a.Reason == "" {
			return fmt.Errorf("assertions[%d]: claim_outcome needs passed, computable or reason", index)
		}
	case AssertPassCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for pass_count", index)
		}
	case AssertCoverage:
		if a.MinRate == nil || *a.MinRate < 0 || *a.MinRate > 1 {
			return fmt.Errorf("assertions[%d]: min_rate in [0, 1] is required for coverage", index)
		}
	case AssertReasonCount:
		if a.Reason == "" {
			return fmt.Errorf("assertions[%d]: reason is required for reason_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for reason_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
