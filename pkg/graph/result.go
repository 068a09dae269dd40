package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/systemstart/assetpipe/pkg/steps"
)

var (
	// ErrStepFailed marks a step that reported failures or could not run.
	ErrStepFailed = errors.New("step failed")
	// ErrUpstreamFailed marks a step skipped because a required step failed.
	ErrUpstreamFailed = errors.New("required step failed")
)

// Status is the outcome of one step within a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StepOutcome records what happened to one step.
type StepOutcome struct {
	Name     string
	Status   Status
	Outputs  []string
	Failures []steps.InputFailure
	Err      error // set when the step could not run or was skipped
	Duration time.Duration
}

// StepError identifies the failing step and, when known, the failing input.
type StepError struct {
	Step  string
	Input string
	Err   error
}

func (e *StepError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("step %q: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %q: %s: %v", e.Step, e.Input, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result summarizes a task run.
type Result struct {
	Task     string
	RunID    string
	Steps    []StepOutcome
	Duration time.Duration
}

// Failed reports whether any step failed or was skipped.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Status != StatusSucceeded {
			return true
		}
	}
	return false
}

// Err joins one StepError per failing input, failing step and skipped step.
// It is nil for a clean run.
func (r *Result) Err() error {
	var errs []error
	for _, s := range r.Steps {
		switch {
		case s.Status == StatusSucceeded:
		case s.Err != nil:
			errs = append(errs, &StepError{Step: s.Name, Err: s.Err})
		default:
			for _, f := range s.Failures {
				errs = append(errs, &StepError{Step: s.Name, Input: f.Input, Err: fmt.Errorf("%w: %w", ErrStepFailed, f.Err)})
			}
		}
	}
	return errors.Join(errs...)
}

// Outcome returns the outcome of the named step, if it ran.
func (r *Result) Outcome(name string) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepOutcome{}, false
}
