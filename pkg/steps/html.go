package steps

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/systemstart/assetpipe/pkg/api"
)

type htmlStep struct {
	name string
	cfg  *api.HTMLConfig
}

// NewHTMLStep creates a markup step. With Render set each page is executed as
// a template against the configured context before it is written.
func NewHTMLStep(name string, cfg *api.HTMLConfig) Step {
	return &htmlStep{name: name, cfg: cfg}
}

func (s *htmlStep) Name() string { return s.name }

func (s *htmlStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("html step processing files", "step", s.name, "count", len(files), "render", s.cfg.Render)

	result := &StepResult{}
	for _, f := range files {
		target := path.Join(s.cfg.Dest, f.relTo(""))
		if !s.cfg.Render {
			if err := copyFile(sctx.ProjectDir, f.Path, target); err != nil {
				result.fail(s.name, f.Path, err)
				continue
			}
			result.wrote(target)
			continue
		}

		if err := renderPage(sctx.ProjectDir, f.Path, target, sctx.TemplateData); err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		result.wrote(target)
	}
	return result, nil
}

func renderPage(projectDir, src, dst string, data map[string]any) error {
	content, err := os.ReadFile(abs(projectDir, src))
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	tmpl, err := template.New(path.Base(src)).Funcs(sprig.FuncMap()).Parse(string(content))
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}

	slog.Debug("page rendered", "file", src)
	return writeOutput(projectDir, dst, buf.Bytes(), 0o644)
}
