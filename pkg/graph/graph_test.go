package graph

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/systemstart/assetpipe/pkg/metrics"
	"github.com/systemstart/assetpipe/pkg/steps"
)

// fakeStep records its invocation and returns a canned result.
type fakeStep struct {
	name     string
	calls    *[]string
	err      error
	failures []steps.InputFailure
	hook     func()
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Run(_ context.Context, _ steps.StepContext) (*steps.StepResult, error) {
	*s.calls = append(*s.calls, s.name)
	if s.hook != nil {
		s.hook()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &steps.StepResult{Outputs: []string{s.name + ".out"}, Failures: s.failures}, nil
}

type fakeBehavior struct {
	err      error
	failures []steps.InputFailure
	hook     func()
}

func fakeFactory(calls *[]string, behaviors map[string]fakeBehavior) StepFactory {
	return func(cfg api.StepConfig) (steps.Step, error) {
		b := behaviors[cfg.Name]
		return &fakeStep{name: cfg.Name, calls: calls, err: b.err, failures: b.failures, hook: b.hook}, nil
	}
}

func testConfig() *api.Config {
	return &api.Config{
		Steps: []api.StepConfig{
			{Name: "clean", Type: api.StepTypeClean},
			{Name: "copy", Type: api.StepTypeCopy},
			{Name: "css", Type: api.StepTypeStyles},
			{Name: "scripts", Type: api.StepTypeScripts, Requires: []string{"copy"}},
			{Name: "html", Type: api.StepTypeHTML},
		},
		Groups: map[string][]string{
			"build": {"clean", "copy", "css", "scripts", "html"},
			"outer": {"build", "clean"},
		},
	}
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results map[metrics.ResultLabel]int
	runs    int
	failed  int
}

func (r *countingRecorder) IncStepResult(_ string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[metrics.ResultLabel]int)
	}
	r.results[result]++
}

func (r *countingRecorder) IncRunOutcome(_ string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	if failed {
		r.failed++
	}
}

func TestRun_Order(t *testing.T) {
	var calls []string
	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, nil)))
	if err != nil {
		t.Fatal(err)
	}

	result, err := g.Run(context.Background(), "outer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"clean", "copy", "css", "scripts", "html"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if result.Failed() || result.Err() != nil {
		t.Errorf("expected clean run, got %v", result.Err())
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if out, ok := result.Outcome("css"); !ok || !slices.Equal(out.Outputs, []string{"css.out"}) {
		t.Errorf("css outcome = %+v", out)
	}
}

func TestRun_SingleStep(t *testing.T) {
	var calls []string
	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Run(context.Background(), "css"); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(calls, []string{"css"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestRun_FailureDoesNotStopRun(t *testing.T) {
	var calls []string
	rec := &countingRecorder{}
	g, err := New(testConfig(), t.TempDir(),
		WithRecorder(rec),
		WithStepFactory(fakeFactory(&calls, map[string]fakeBehavior{
			"css": {err: errors.New("sass binary not found in PATH")},
		})))
	if err != nil {
		t.Fatal(err)
	}

	result, err := g.Run(context.Background(), "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(calls, []string{"clean", "copy", "css", "scripts", "html"}) {
		t.Errorf("calls = %v", calls)
	}
	if !result.Failed() {
		t.Fatal("expected failed result")
	}

	runErr := result.Err()
	if !errors.Is(runErr, ErrStepFailed) {
		t.Errorf("expected ErrStepFailed, got %v", runErr)
	}
	var stepErr *StepError
	if !errors.As(runErr, &stepErr) || stepErr.Step != "css" {
		t.Errorf("expected StepError for css, got %v", runErr)
	}
	if rec.results[metrics.ResultFailed] != 1 || rec.results[metrics.ResultSuccess] != 4 {
		t.Errorf("recorded results = %v", rec.results)
	}
	if rec.runs != 1 || rec.failed != 1 {
		t.Errorf("recorded runs=%d failed=%d", rec.runs, rec.failed)
	}
}

func TestRun_RequiredStepFailureSkips(t *testing.T) {
	var calls []string
	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, map[string]fakeBehavior{
		"copy": {failures: []steps.InputFailure{{Input: "source/a.js", Err: errors.New("permission denied")}}},
	})))
	if err != nil {
		t.Fatal(err)
	}

	result, err := g.Run(context.Background(), "build")
	if err != nil {
		t.Fatal(err)
	}

	if slices.Contains(calls, "scripts") {
		t.Error("scripts must be skipped when copy failed")
	}
	if !slices.Contains(calls, "html") {
		t.Error("html does not require copy and must still run")
	}

	outcome, _ := result.Outcome("scripts")
	if outcome.Status != StatusSkipped || !errors.Is(outcome.Err, ErrUpstreamFailed) {
		t.Errorf("scripts outcome = %+v", outcome)
	}
	copyOutcome, _ := result.Outcome("copy")
	if copyOutcome.Status != StatusFailed || !slices.Equal(copyOutcome.Outputs, []string{"copy.out"}) {
		t.Errorf("copy outcome = %+v", copyOutcome)
	}

	var inputErr *StepError
	if !errors.As(result.Err(), &inputErr) || inputErr.Step != "copy" || inputErr.Input != "source/a.js" {
		t.Errorf("expected input-level error for copy, got %v", result.Err())
	}
	if !errors.Is(result.Err(), ErrUpstreamFailed) {
		t.Error("expected the skip to be reported")
	}
}

func TestRun_RequiresIgnoredWhenNotInPlan(t *testing.T) {
	var calls []string
	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, nil)))
	if err != nil {
		t.Fatal(err)
	}
	result, err := g.Run(context.Background(), "scripts")
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed() || !slices.Equal(calls, []string{"scripts"}) {
		t.Errorf("calls = %v, failed = %v", calls, result.Failed())
	}
}

func TestRun_UnknownTask(t *testing.T) {
	var calls []string
	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, nil)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Run(context.Background(), "deploy")
	var cfgErr *api.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("no step should run, got %v", calls)
	}
}

func TestRun_Cancelled(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, err := New(testConfig(), t.TempDir(), WithStepFactory(fakeFactory(&calls, map[string]fakeBehavior{
		"copy": {hook: cancel},
	})))
	if err != nil {
		t.Fatal(err)
	}

	result, err := g.Run(ctx, "build")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || len(result.Steps) != 2 {
		t.Fatalf("expected partial result with two steps, got %+v", result)
	}
	if !slices.Equal(calls, []string{"clean", "copy"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestNew_FactoryError(t *testing.T) {
	_, err := New(testConfig(), t.TempDir(), WithStepFactory(func(api.StepConfig) (steps.Step, error) {
		return nil, errors.New("boom")
	}))
	if err == nil {
		t.Fatal("expected error")
	}
}
