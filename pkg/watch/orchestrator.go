// Package watch re-runs tasks when source files change.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/systemstart/assetpipe/pkg/graph"
)

// Runner runs a named task.
type Runner interface {
	Run(ctx context.Context, task string) (*graph.Result, error)
}

// Notifier is told when a binding with Reload set has finished.
type Notifier interface {
	Reload()
}

// State of the orchestrator loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Orchestrator dispatches file changes to bindings. Bindings run one at a
// time in the order they were triggered. A binding is queued at most once:
// any number of changes arriving while it runs or waits collapse into a
// single further run.
type Orchestrator struct {
	bindings []Binding
	runner   Runner
	notifier Notifier
	state    atomic.Int32
}

// NewOrchestrator creates an orchestrator. notifier may be nil.
func NewOrchestrator(bindings []Binding, runner Runner, notifier Notifier) *Orchestrator {
	return &Orchestrator{bindings: bindings, runner: runner, notifier: notifier}
}

// State reports whether a binding is currently running.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Loop consumes changed paths until ctx is cancelled or changes is closed
// and all queued work has finished. An in-flight run is always waited for.
func (o *Orchestrator) Loop(ctx context.Context, changes <-chan string) error {
	var (
		queue   []int
		queued  = make(map[int]bool)
		running = -1
		done    = make(chan int)
	)

	for {
		if running < 0 && len(queue) > 0 {
			running, queue = queue[0], queue[1:]
			delete(queued, running)
			o.state.Store(int32(StateRunning))
			go func(idx int) {
				o.execute(ctx, o.bindings[idx])
				done <- idx
			}(running)
		}

		if changes == nil && running < 0 && len(queue) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			if running >= 0 {
				<-done
				o.state.Store(int32(StateIdle))
			}
			return nil
		case rel, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			for idx, b := range o.bindings {
				if !b.Matches(rel) || queued[idx] {
					continue
				}
				slog.Debug("change queued", "path", rel, "pattern", b.Pattern, "running", running == idx)
				queued[idx] = true
				queue = append(queue, idx)
			}
		case <-done:
			running = -1
			o.state.Store(int32(StateIdle))
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, b Binding) {
	for _, task := range b.Tasks {
		res, err := o.runner.Run(ctx, task)
		if err != nil {
			slog.Error("watch task failed", "pattern", b.Pattern, "task", task, "error", err)
			return
		}
		if res.Failed() {
			slog.Warn("watch task finished with failures", "pattern", b.Pattern, "task", task)
		}
	}
	if b.Reload && o.notifier != nil {
		o.notifier.Reload()
	}
}
