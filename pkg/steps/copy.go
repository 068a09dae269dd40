package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/systemstart/assetpipe/pkg/api"
)

type copyStep struct {
	name string
	cfg  *api.CopyConfig
}

// NewCopyStep creates a copy step.
func NewCopyStep(name string, cfg *api.CopyConfig) Step {
	return &copyStep{name: name, cfg: cfg}
}

func (s *copyStep) Name() string { return s.name }

func (s *copyStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("copy step processing files", "step", s.name, "count", len(files), "dest", s.cfg.Dest)

	result := &StepResult{}
	for _, f := range files {
		target := path.Join(s.cfg.Dest, f.relTo(s.cfg.Base))
		if err := copyFile(sctx.ProjectDir, f.Path, target); err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		result.wrote(target)
	}
	return result, nil
}
