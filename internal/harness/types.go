package harness

import "github.com/roach88/dataservice/internal/ir"

// StepOutput is what one scenario step produced.
type StepOutput struct {
	Step  int    `json:"step"`
	Kind  string `json:"kind"` // "query", "run" or "parse"
	Input string `json:"input"`

	// Output is the step's IR projection: an executed result for query and
	// run steps, the parsed trees for parse steps. Nil when the step failed.
	Output ir.IRObject `json:"output,omitempty"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Outputs holds one entry per step, in step order.
	Outputs []StepOutput `json:"outputs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []StepOutput{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Output returns the output of step i.
func (r *Result) Output(i int) (StepOutput, bool) {
	if i < 0 || i >= len(r.Outputs) {
		return StepOutput{}, false
	}
	return r.Outputs[i], true
}

// toIR projects a step output for canonical snapshots.
func (o StepOutput) toIR() ir.IRObject {
	obj := ir.IRObject{
		"step":  ir.IRInt(o.Step),
		"kind":  ir.IRString(o.Kind),
		"input": ir.IRString(o.Input),
	}
	if o.Output != nil {
		obj["output"] = o.Output
	}
	if o.Error != "" {
		obj["error"] = ir.IRString(o.Error)
	}
	return obj
}
