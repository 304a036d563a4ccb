package harness

import "github.com/roach88/causetrail/internal/cause"

// RunSummary describes one run scheduled by a scenario.
type RunSummary struct {
	Alias   string      `json:"alias,omitempty"`
	Project string      `json:"project"`
	Number  int         `json:"number"`
	Seq     int64       `json:"seq"`
	ChainID string      `json:"chain_id"`
	Stats   cause.Stats `json:"stats"`

	chain cause.Chain
}

// Chain returns the cause chain the run was scheduled with.
func (s RunSummary) Chain() cause.Chain { return s.chain }

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Runs lists the scheduled runs in scheduling order.
	Runs []RunSummary `json:"runs"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunSummary{},
		Errors: []string{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
