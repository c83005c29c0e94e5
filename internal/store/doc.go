// Package store provides a SQLite-backed ledger of evaluation runs.
//
// The ledger holds:
//   - Runs: one record per evaluation run (paper, tolerance, datasets)
//   - Results: one record per claim evaluated against a dataset in a run
//
// # Invariants
//
// Result idempotency:
//   - UNIQUE(run_id, experiment, dataset, claim_index)
//   - Rewriting a result for the same claim in the same run is a no-op
//
// Deterministic reads:
//   - Results are read in write order: ORDER BY seq ASC
//   - Runs are read by start time, ties broken by ORDER BY id COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Results must reference a recorded run
package store
