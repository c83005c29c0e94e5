package harness

import "github.com/roach88/claimspec/internal/evaluate"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Run is the run record read back from the ledger.
	Run evaluate.Run `json:"run"`

	// Rows are the recorded results in write order.
	Rows []evaluate.Row `json:"rows"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Rows:   []evaluate.Row{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
