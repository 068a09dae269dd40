// Package processing wires configuration, the task graph, the watcher and
// the development server into the one-shot and start modes.
package processing

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"

	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/systemstart/assetpipe/pkg/graph"
	"github.com/systemstart/assetpipe/pkg/livereload"
	"github.com/systemstart/assetpipe/pkg/metrics"
	"github.com/systemstart/assetpipe/pkg/steps"
	"github.com/systemstart/assetpipe/pkg/watch"
	"golang.org/x/sync/errgroup"
)

// Session holds everything a process run needs. It is created once at
// startup and closed on exit.
type Session struct {
	Config     *api.Config
	ProjectDir string
	Graph      *graph.Graph
	Hub        *livereload.Hub

	recorder *metrics.PrometheusRecorder
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	factory graph.StepFactory
}

// WithStepFactory replaces the step constructor, mainly for tests.
func WithStepFactory(f graph.StepFactory) SessionOption {
	return func(o *sessionOptions) { o.factory = f }
}

// NewSession builds the task graph for a validated configuration rooted at projectDir.
func NewSession(cfg *api.Config, projectDir string, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{factory: steps.NewStep}
	for _, opt := range opts {
		opt(&o)
	}

	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	g, err := graph.New(cfg, absDir, graph.WithRecorder(recorder), graph.WithStepFactory(o.factory))
	if err != nil {
		return nil, fmt.Errorf("building task graph: %w", err)
	}

	return &Session{
		Config:     cfg,
		ProjectDir: absDir,
		Graph:      g,
		Hub:        livereload.NewHub(),
		recorder:   recorder,
	}, nil
}

// Close disconnects live-reload clients.
func (s *Session) Close() {
	s.Hub.Shutdown()
}

// RunTask runs a step or group once. The error is non-nil when any step failed.
func (s *Session) RunTask(ctx context.Context, task string) error {
	res, err := s.Graph.Run(ctx, task)
	if err != nil {
		return fmt.Errorf("running %q: %w", task, err)
	}
	if res.Failed() {
		return fmt.Errorf("task %q failed: %w", task, res.Err())
	}
	return nil
}

// StartOptions tunes Start.
type StartOptions struct {
	Listener    net.Listener // optional; a listener on the configured address is opened otherwise
	OpenBrowser bool
}

// Start runs the configured before task, then serves the build directory and
// re-runs bound tasks on source changes until ctx is cancelled.
func (s *Session) Start(ctx context.Context, opts StartOptions) error {
	if before := s.Config.Serve.Before; before != "" {
		if err := s.RunTask(ctx, before); err != nil {
			slog.Error("initial build failed, serving anyway", "task", before, "error", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil
	}

	ln := opts.Listener
	if ln == nil {
		addr := net.JoinHostPort(s.Config.Serve.Host, strconv.Itoa(s.Config.Serve.Port))
		var err error
		if ln, err = net.Listen("tcp", addr); err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
	}

	watcher, err := watch.NewWatcher(s.ProjectDir, s.Config.Build, s.Config.Serve.Root)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()

	server := livereload.NewServer(livereload.Options{
		Root:    filepath.Join(s.ProjectDir, s.Config.Serve.Root),
		CORS:    s.Config.Serve.CORS,
		Metrics: s.recorder.Handler(),
	}, s.Hub)

	orchestrator := watch.NewOrchestrator(
		watch.BindingsFromConfig(s.Config.Watch),
		s.Graph,
		&reloadNotifier{hub: s.Hub, recorder: s.recorder},
	)

	if opts.OpenBrowser {
		if err := livereload.OpenBrowser("http://" + ln.Addr().String()); err != nil {
			slog.Warn("could not open browser", "error", err)
		}
	}

	changes := make(chan string, 64)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return server.Serve(egCtx, ln) })
	eg.Go(func() error { return watcher.Run(egCtx, changes) })
	eg.Go(func() error { return orchestrator.Loop(egCtx, changes) })

	slog.Info("watching for changes", "dir", s.ProjectDir, "bindings", len(s.Config.Watch))
	return eg.Wait()
}

type reloadNotifier struct {
	hub      *livereload.Hub
	recorder metrics.Recorder
}

func (n *reloadNotifier) Reload() {
	n.hub.Reload()
	n.recorder.IncReload()
}
