package harness

import (
	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/locate"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Layout is the computed layout, nil when layout failed.
	Layout *ir.StructLayout `json:"-"`

	// Locations places Layout at the scenario's base, if one was given.
	Locations []locate.Location `json:"locations,omitempty"`

	// ErrorCode and ErrorMessage describe the layout failure, if any.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
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
