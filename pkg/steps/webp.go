package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"

	"github.com/systemstart/assetpipe/pkg/api"
)

const cwebpBinary = "cwebp"

type webpStep struct {
	name string
	cfg  *api.WebPConfig
}

// NewWebPStep creates a step converting raster images to WebP.
func NewWebPStep(name string, cfg *api.WebPConfig) Step {
	return &webpStep{name: name, cfg: cfg}
}

func (s *webpStep) Name() string { return s.name }

func (s *webpStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	if !toolAvailable(cwebpBinary) {
		return nil, fmt.Errorf("%s binary not found in PATH", cwebpBinary)
	}

	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("webp step converting files", "step", s.name, "count", len(files), "quality", s.cfg.Quality)

	result := &StepResult{}
	for _, f := range files {
		target := path.Join(s.cfg.Dest, replaceExt(f.relTo(""), ".webp"))
		if err := os.MkdirAll(abs(sctx.ProjectDir, path.Dir(target)), 0o750); err != nil {
			result.fail(s.name, f.Path, fmt.Errorf("creating directory: %w", err))
			continue
		}
		_, err := runTool(ctx, sctx.ProjectDir, nil, cwebpBinary,
			"-quiet", "-q", strconv.Itoa(s.cfg.Quality), "-metadata", "none",
			f.Path, "-o", target)
		if err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		result.wrote(target)
	}
	return result, nil
}
