package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/systemstart/assetpipe/pkg/api"
)

var scriptTargets = map[string]esbuild.Target{
	"es5":    esbuild.ES5,
	"es2015": esbuild.ES2015,
	"es2016": esbuild.ES2016,
	"es2017": esbuild.ES2017,
	"es2018": esbuild.ES2018,
	"es2019": esbuild.ES2019,
	"es2020": esbuild.ES2020,
	"es2021": esbuild.ES2021,
	"es2022": esbuild.ES2022,
	"esnext": esbuild.ESNext,
}

type scriptsStep struct {
	name string
	cfg  *api.ScriptsConfig
}

// NewScriptsStep creates a script step.
func NewScriptsStep(name string, cfg *api.ScriptsConfig) Step {
	return &scriptsStep{name: name, cfg: cfg}
}

func (s *scriptsStep) Name() string { return s.name }

func (s *scriptsStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	target, ok := scriptTargets[strings.ToLower(s.cfg.Target)]
	if !ok {
		return nil, fmt.Errorf("unknown script target %q", s.cfg.Target)
	}

	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("scripts step processing files", "step", s.name, "count", len(files), "bundle", s.cfg.Bundle)

	result := &StepResult{}
	if len(files) == 0 {
		slog.Warn("no scripts matched", "step", s.name)
		return result, nil
	}

	if s.cfg.Bundle != "" {
		s.bundle(sctx.ProjectDir, files, target, result)
		return result, nil
	}

	for _, f := range files {
		code, err := os.ReadFile(abs(sctx.ProjectDir, f.Path))
		if err != nil {
			result.fail(s.name, f.Path, fmt.Errorf("reading file: %w", err))
			continue
		}
		out := path.Join(s.cfg.Dest, replaceExt(f.relTo(""), s.cfg.Suffix+".js"))
		if err := s.transform(sctx.ProjectDir, f.Path, code, out, target, result); err != nil {
			result.fail(s.name, f.Path, err)
		}
	}
	return result, nil
}

// bundle concatenates files in match order, writes the plain bundle and
// then its transformed counterpart.
func (s *scriptsStep) bundle(projectDir string, files []fileMatch, target esbuild.Target, result *StepResult) {
	var buf bytes.Buffer
	for _, f := range files {
		code, err := os.ReadFile(abs(projectDir, f.Path))
		if err != nil {
			result.fail(s.name, f.Path, fmt.Errorf("reading file: %w", err))
			continue
		}
		buf.Write(code)
		if !bytes.HasSuffix(code, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}

	plain := path.Join(s.cfg.Dest, s.cfg.Bundle)
	if err := writeOutput(projectDir, plain, buf.Bytes(), 0o644); err != nil {
		result.fail(s.name, plain, err)
		return
	}
	result.wrote(plain)

	out := path.Join(s.cfg.Dest, replaceExt(s.cfg.Bundle, s.cfg.Suffix+".js"))
	if err := s.transform(projectDir, plain, buf.Bytes(), out, target, result); err != nil {
		result.fail(s.name, plain, err)
	}
}

func (s *scriptsStep) transform(projectDir, src string, code []byte, out string, target esbuild.Target, result *StepResult) error {
	minify := s.cfg.Minify == nil || *s.cfg.Minify

	opts := esbuild.TransformOptions{
		Loader:            esbuild.LoaderJS,
		Target:            target,
		Sourcefile:        path.Base(src),
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		LegalComments:     esbuild.LegalCommentsNone,
	}
	if s.cfg.SourceMap {
		opts.Sourcemap = esbuild.SourceMapExternal
	}

	res := esbuild.Transform(string(code), opts)
	if len(res.Errors) > 0 {
		return transformError(res.Errors)
	}

	output := res.Code
	if s.cfg.SourceMap {
		mapOut := out + ".map"
		if err := writeOutput(projectDir, mapOut, res.Map, 0o644); err != nil {
			return err
		}
		result.wrote(mapOut)
		output = append(output, []byte("//# sourceMappingURL="+path.Base(mapOut)+"\n")...)
	}

	if err := writeOutput(projectDir, out, output, 0o644); err != nil {
		return err
	}
	result.wrote(out)
	return nil
}

func transformError(msgs []esbuild.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			errs = append(errs, fmt.Errorf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		errs = append(errs, errors.New(m.Text))
	}
	return fmt.Errorf("transform: %w", errors.Join(errs...))
}
