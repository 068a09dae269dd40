package steps

import (
	"context"
	"fmt"
	"log/slog"
)

// StepContext provides the runtime context for a step.
type StepContext struct {
	ProjectDir   string
	TemplateData map[string]any
}

// InputFailure records a single input a step could not transform.
type InputFailure struct {
	Input string
	Err   error
}

func (f InputFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Input, f.Err)
}

func (f InputFailure) Unwrap() error { return f.Err }

// StepResult holds the output of a step.
type StepResult struct {
	Outputs  []string       // project-relative paths written by the step
	Failures []InputFailure // inputs that failed; the remaining inputs were still processed
}

// Failed reports whether any input failed.
func (r *StepResult) Failed() bool {
	return r != nil && len(r.Failures) > 0
}

func (r *StepResult) wrote(path string) {
	r.Outputs = append(r.Outputs, path)
}

func (r *StepResult) fail(step, input string, err error) {
	slog.Warn("input failed", "step", step, "path", input, "error", err)
	r.Failures = append(r.Failures, InputFailure{Input: input, Err: err})
}

// Step is the interface all pipeline steps implement. A returned error means
// the step could not run at all; per-input problems land in StepResult.Failures.
type Step interface {
	Name() string
	Run(ctx context.Context, sctx StepContext) (*StepResult, error)
}
