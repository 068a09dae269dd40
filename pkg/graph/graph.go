// Package graph runs named steps and groups of steps in their declared order.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/systemstart/assetpipe/pkg/metrics"
	"github.com/systemstart/assetpipe/pkg/steps"
)

// StepFactory builds a Step from its configuration.
type StepFactory func(api.StepConfig) (steps.Step, error)

// Graph holds every configured step, built once, and runs plans over them.
type Graph struct {
	cfg        *api.Config
	projectDir string
	steps      map[string]steps.Step
	recorder   metrics.Recorder
	factory    StepFactory
}

// Option configures a Graph.
type Option func(*Graph)

// WithRecorder reports step and run metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Graph) { g.recorder = r }
}

// WithStepFactory replaces steps.NewStep.
func WithStepFactory(f StepFactory) Option {
	return func(g *Graph) { g.factory = f }
}

// New builds the steps of a validated configuration.
func New(cfg *api.Config, projectDir string, opts ...Option) (*Graph, error) {
	g := &Graph{
		cfg:        cfg,
		projectDir: projectDir,
		steps:      make(map[string]steps.Step, len(cfg.Steps)),
		recorder:   metrics.NoopRecorder{},
		factory:    steps.NewStep,
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, stepCfg := range cfg.Steps {
		step, err := g.factory(stepCfg)
		if err != nil {
			return nil, fmt.Errorf("creating step %q: %w", stepCfg.Name, err)
		}
		g.steps[stepCfg.Name] = step
	}
	return g, nil
}

// Plan returns the ordered step names a task runs.
func (g *Graph) Plan(task string) ([]string, error) {
	return g.cfg.Expand(task)
}

// Run executes the plan for task one step at a time. Step failures do not
// stop the run; steps whose requirements failed are skipped. The returned
// error is only set for an unknown task or a cancelled context, in which
// case the partial Result is still returned.
func (g *Graph) Run(ctx context.Context, task string) (*Result, error) {
	plan, err := g.Plan(task)
	if err != nil {
		return nil, err
	}

	result := &Result{Task: task, RunID: uuid.NewString()}
	logger := slog.With("task", task, "run", result.RunID)
	logger.Info("running task", "steps", len(plan))

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		g.recorder.ObserveRunDuration(task, result.Duration)
		g.recorder.IncRunOutcome(task, result.Failed())
	}()

	sctx := steps.StepContext{ProjectDir: g.projectDir, TemplateData: g.cfg.Context}
	for _, name := range plan {
		if err := ctx.Err(); err != nil {
			logger.Warn("task interrupted", "step", name, "error", err)
			return result, err
		}

		outcome := g.runStep(ctx, logger, name, sctx, result)
		result.Steps = append(result.Steps, outcome)
	}

	if result.Failed() {
		logger.Error("task finished with failures", "duration", time.Since(start), "error", result.Err())
	} else {
		logger.Info("task finished", "duration", time.Since(start))
	}
	return result, nil
}

func (g *Graph) runStep(ctx context.Context, logger *slog.Logger, name string, sctx steps.StepContext, sofar *Result) StepOutcome {
	stepCfg, _ := g.cfg.Step(name)
	for _, req := range stepCfg.Requires {
		prior, ran := sofar.Outcome(req)
		if ran && prior.Status != StatusSucceeded {
			logger.Warn("skipping step", "step", name, "requires", req)
			g.recorder.IncStepResult(name, metrics.ResultSkipped)
			return StepOutcome{
				Name:   name,
				Status: StatusSkipped,
				Err:    fmt.Errorf("%w: %s", ErrUpstreamFailed, req),
			}
		}
	}

	logger.Info("running step", "step", name, "type", stepCfg.Type)

	start := time.Now()
	res, err := g.steps[name].Run(ctx, sctx)
	outcome := StepOutcome{Name: name, Status: StatusSucceeded, Duration: time.Since(start)}
	g.recorder.ObserveStepDuration(name, outcome.Duration)

	switch {
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("%w: %w", ErrStepFailed, err)
		logger.Error("step failed", "step", name, "error", err)
	case res.Failed():
		outcome.Status = StatusFailed
		outcome.Outputs = res.Outputs
		outcome.Failures = res.Failures
		logger.Error("step failed", "step", name, "failedInputs", len(res.Failures), "outputs", len(res.Outputs))
	default:
		if res != nil {
			outcome.Outputs = res.Outputs
		}
		logger.Debug("step succeeded", "step", name, "outputs", len(outcome.Outputs), "duration", outcome.Duration)
	}

	result := metrics.ResultSuccess
	if outcome.Status == StatusFailed {
		result = metrics.ResultFailed
	}
	g.recorder.IncStepResult(name, result)
	return outcome
}
