package steps

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/tdewolff/minify/v2"
)

const jpegtranBinary = "jpegtran"

type imagesStep struct {
	name string
	cfg  *api.ImagesConfig
	min  *minify.M
}

// NewImagesStep creates a lossless image optimization step.
func NewImagesStep(name string, cfg *api.ImagesConfig) Step {
	return &imagesStep{name: name, cfg: cfg, min: newMinifier()}
}

func (s *imagesStep) Name() string { return s.name }

func (s *imagesStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("images step processing files", "step", s.name, "count", len(files))

	haveJpegtran := toolAvailable(jpegtranBinary)
	if !haveJpegtran {
		slog.Warn("jpegtran not found in PATH, jpeg files are copied unchanged", "step", s.name)
	}

	result := &StepResult{}
	for _, f := range files {
		data, err := os.ReadFile(abs(sctx.ProjectDir, f.Path))
		if err != nil {
			result.fail(s.name, f.Path, fmt.Errorf("reading file: %w", err))
			continue
		}

		var optimized []byte
		switch strings.ToLower(path.Ext(f.Path)) {
		case ".png":
			optimized, err = optimizePNG(data)
		case ".jpg", ".jpeg":
			if haveJpegtran {
				optimized, err = runTool(ctx, sctx.ProjectDir, bytes.NewReader(data), jpegtranBinary, "-copy", "none", "-optimize", "-progressive")
			}
		case ".svg":
			optimized, err = s.min.Bytes(mediaSVG, data)
		}
		if err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		if optimized == nil || len(optimized) >= len(data) {
			optimized = data
		}

		target := path.Join(s.cfg.Dest, f.relTo(""))
		if err := writeOutput(sctx.ProjectDir, target, optimized, 0o644); err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		slog.Debug("image optimized", "path", f.Path, "before", len(data), "after", len(optimized))
		result.wrote(target)
	}
	return result, nil
}

// optimizePNG re-encodes at the best zlib compression level. Pixels are unchanged.
func optimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
