package harness

import (
	"github.com/roach88/delegation/internal/delegation"
	"github.com/roach88/delegation/internal/ir"
)

// QueryRun is one emitted query node and the outcome of executing it
// against the fixture store.
type QueryRun struct {
	// Node is the query node as it appears in the rewritten tree.
	Node ir.Node `json:"-"`

	// Table is the queried table.
	Table string `json:"table"`

	// SQL and Params are the compiled statement. Empty when compilation
	// failed.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Rows holds the returned records, in result order.
	Rows []map[string]ir.Value `json:"-"`

	// Error is set when the query could not be compiled or executed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Compile is the delegation result of the scenario expression.
	Compile *delegation.Result `json:"-"`

	// Queries lists every emitted query node in pre-order.
	Queries []QueryRun `json:"queries"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []QueryRun{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Warnings returns the compile warnings, or nil before compilation.
func (r *Result) Warnings() []delegation.Warning {
	if r.Compile == nil {
		return nil
	}
	return r.Compile.Warnings
}
