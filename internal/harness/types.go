package harness

import (
	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/migrate"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Report *compat.Report `json:"report"`
	Plan   *migrate.Plan  `json:"plan"`

	// Declared is the bump implied by the two ontology versions, empty
	// when a version could not be compared.
	Declared compat.Bump `json:"declared_bump,omitempty"`

	// PolicyErr is the version policy violation, nil when the declared
	// bump covers the required one.
	PolicyErr error `json:"-"`

	Baseline  *ir.Document `json:"-"`
	Candidate *ir.Document `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// PolicyVerdict returns "pass" or "fail".
func (r *Result) PolicyVerdict() string {
	if r.PolicyErr != nil {
		return PolicyFail
	}
	return PolicyPass
}
