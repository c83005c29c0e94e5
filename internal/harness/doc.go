// Package harness runs audit scenarios: a claim suite evaluated against
// fixed datasets, with the expected outcome of each claim written down
// next to it.
//
// Scenarios pin the behavior of a suite so a change to a spec, a
// comparator or a dataset shows up as a failing assertion or a golden
// diff rather than a silent shift in pass rates.
//
// # Scenario Format
//
// Scenarios are YAML files. Paths are relative to the scenario file:
//
//	name: toy_audit
//	description: "gold reproduces every claim, fair misses two"
//	suite: ../suites/toy.yaml
//	datasets:
//	  - name: gold
//	    path: ../data/gold
//	  - name: fair
//	    path: ../data/fair
//	tolerance: { rtol: 0, atol: 0 }
//	assertions:
//	  - type: claim_outcome
//	    experiment: exp1
//	    dataset: fair
//	    claim: 1
//	    passed: false
//	    reason: value_mismatch
//	  - type: pass_count
//	    dataset: gold
//	    count: 3
//
// # Assertion Types
//
//   - claim_outcome: one claim's computable/passed flags and reason
//   - pass_count: number of passing evaluations, optionally per dataset or experiment
//   - coverage: minimum coverage rate, optionally per dataset or experiment
//   - reason_count: number of evaluations recorded with a reason
//
// # Deterministic Runs
//
// Every scenario runs with a fixed run ID, a testutil.DeterministicClock
// and a fresh in-memory ledger. Assertions are checked against the rows
// read back from the ledger, so a scenario also covers what an audit
// records, not only what it computes.
package harness
