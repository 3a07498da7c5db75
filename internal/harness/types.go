package harness

import "github.com/irqtools/handoff/internal/trace"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per completed operation, in completion
	// order.
	Trace []trace.Event `json:"trace"`

	// Errors contains expect and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`

	// FinalState is the cell tag after the last step.
	FinalState string `json:"final_state"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []trace.Event{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
