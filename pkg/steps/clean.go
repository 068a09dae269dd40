package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/systemstart/assetpipe/pkg/api"
)

type cleanStep struct {
	name string
	cfg  *api.CleanConfig
}

// NewCleanStep creates a step that erases a directory and recreates it empty.
func NewCleanStep(name string, cfg *api.CleanConfig) Step {
	return &cleanStep{name: name, cfg: cfg}
}

func (s *cleanStep) Name() string { return s.name }

func (s *cleanStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	dir := abs(sctx.ProjectDir, s.cfg.Dir)

	slog.Debug("cleaning directory", "step", s.name, "dir", s.cfg.Dir)

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("removing %s: %w", s.cfg.Dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("recreating %s: %w", s.cfg.Dir, err)
	}
	return &StepResult{Outputs: []string{s.cfg.Dir}}, nil
}
