package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/systemstart/assetpipe/pkg/api"
)

type scaffoldStep struct {
	name string
	cfg  *api.ScaffoldConfig
}

// NewScaffoldStep creates a step that lays out empty project directories.
func NewScaffoldStep(name string, cfg *api.ScaffoldConfig) Step {
	return &scaffoldStep{name: name, cfg: cfg}
}

func (s *scaffoldStep) Name() string { return s.name }

func (s *scaffoldStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	result := &StepResult{}
	for _, dir := range s.cfg.Dirs {
		if err := os.MkdirAll(abs(sctx.ProjectDir, dir), 0o750); err != nil {
			result.fail(s.name, dir, fmt.Errorf("creating directory: %w", err))
			continue
		}
		slog.Debug("directory ready", "step", s.name, "dir", dir)
		result.wrote(dir)
	}
	slog.Debug("scaffold step created directories", "step", s.name, "count", len(result.Outputs))
	return result, nil
}
