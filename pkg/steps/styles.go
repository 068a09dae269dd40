package steps

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/systemstart/assetpipe/pkg/api"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaCSS = "text/css"
	mediaSVG = "image/svg+xml"
)

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	return m
}

type stylesStep struct {
	name string
	cfg  *api.StylesConfig
	min  *minify.M
}

// NewStylesStep creates a step that compiles the stylesheet entry point,
// runs the optional prefixer over it and writes a minified copy.
func NewStylesStep(name string, cfg *api.StylesConfig) Step {
	return &stylesStep{name: name, cfg: cfg, min: newMinifier()}
}

func (s *stylesStep) Name() string { return s.name }

func (s *stylesStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	compiler := s.cfg.Compiler
	if compiler == "" {
		compiler = api.DefaultSassCompiler
	}
	if !toolAvailable(compiler) {
		return nil, fmt.Errorf("%s binary not found in PATH", compiler)
	}

	cssOut := path.Join(s.cfg.Dest, replaceExt(path.Base(s.cfg.Entry), ".css"))
	result := &StepResult{}

	if err := os.MkdirAll(abs(sctx.ProjectDir, s.cfg.Dest), 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.cfg.Dest, err)
	}

	args := []string{"--no-source-map"}
	if s.cfg.SourceMap {
		args = []string{"--source-map", "--embed-sources"}
	}
	args = append(args, s.cfg.Entry, cssOut)

	slog.Debug("compiling styles", "step", s.name, "entry", s.cfg.Entry, "output", cssOut)

	if _, err := runTool(ctx, sctx.ProjectDir, nil, compiler, args...); err != nil {
		result.fail(s.name, s.cfg.Entry, err)
		return result, nil
	}
	result.wrote(cssOut)
	if s.cfg.SourceMap {
		result.wrote(cssOut + ".map")
	}

	compiled, err := os.ReadFile(abs(sctx.ProjectDir, cssOut))
	if err != nil {
		return nil, fmt.Errorf("reading compiled css: %w", err)
	}

	if len(s.cfg.Prefixer) > 0 {
		prefixed, err := runTool(ctx, sctx.ProjectDir, bytes.NewReader(compiled), s.cfg.Prefixer[0], s.cfg.Prefixer[1:]...)
		if err != nil {
			result.fail(s.name, cssOut, fmt.Errorf("prefixing: %w", err))
			return result, nil
		}
		compiled = prefixed
		if err := writeOutput(sctx.ProjectDir, cssOut, compiled, 0o644); err != nil {
			return nil, err
		}
	}

	if s.cfg.MinName == "" {
		return result, nil
	}

	minified, err := s.min.Bytes(mediaCSS, compiled)
	if err != nil {
		result.fail(s.name, cssOut, fmt.Errorf("minifying: %w", err))
		return result, nil
	}
	minOut := path.Join(s.cfg.Dest, s.cfg.MinName)
	if err := writeOutput(sctx.ProjectDir, minOut, minified, 0o644); err != nil {
		return nil, err
	}
	result.wrote(minOut)
	return result, nil
}
