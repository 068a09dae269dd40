package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/systemstart/assetpipe/pkg/api"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// symbolAttrs are carried over from each icon's root element onto its <symbol>.
var symbolAttrs = []string{"viewBox", "preserveAspectRatio"}

type spriteStep struct {
	name string
	cfg  *api.SpriteConfig
}

// NewSpriteStep creates a step that merges icons into one <symbol> sprite.
func NewSpriteStep(name string, cfg *api.SpriteConfig) Step {
	return &spriteStep{name: name, cfg: cfg}
}

func (s *spriteStep) Name() string { return s.name }

func (s *spriteStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	files, err := matchFiles(sctx.ProjectDir, s.cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("matching files: %w", err)
	}

	slog.Debug("sprite step collecting icons", "step", s.name, "count", len(files), "output", s.cfg.Output)

	result := &StepResult{}
	if len(files) == 0 {
		slog.Warn("no icons matched, sprite not written", "step", s.name)
		return result, nil
	}

	sprite := etree.NewDocument()
	if !s.cfg.Inline {
		sprite.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		sprite.CreateDirective(`DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd"`)
	}
	root := sprite.CreateElement("svg")
	root.CreateAttr("xmlns", svgNamespace)

	ids := make(map[string]string)
	for _, f := range files {
		id := strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
		if prev, dup := ids[id]; dup {
			result.fail(s.name, f.Path, fmt.Errorf("symbol id %q already taken by %s", id, prev))
			continue
		}
		symbol, namespaces, err := loadSymbol(abs(sctx.ProjectDir, f.Path), id)
		if err != nil {
			result.fail(s.name, f.Path, err)
			continue
		}
		ids[id] = f.Path
		for _, ns := range namespaces {
			if root.SelectAttr(ns.FullKey()) == nil {
				root.CreateAttr(ns.FullKey(), ns.Value)
			}
		}
		root.AddChild(symbol)
	}

	data, err := sprite.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing sprite: %w", err)
	}
	if err := writeOutput(sctx.ProjectDir, s.cfg.Output, data, 0o644); err != nil {
		return nil, err
	}
	result.wrote(s.cfg.Output)
	return result, nil
}

// loadSymbol parses one icon and returns its content wrapped in a <symbol>
// plus any extra xmlns declarations the content depends on.
func loadSymbol(filename, id string) (*etree.Element, []etree.Attr, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("reading icon: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, nil, fmt.Errorf("parsing icon: %w", err)
	}
	icon := doc.Root()
	if icon == nil || icon.Tag != "svg" {
		return nil, nil, fmt.Errorf("root element is not <svg>")
	}

	symbol := etree.NewElement("symbol")
	symbol.CreateAttr("id", id)
	for _, key := range symbolAttrs {
		if v := icon.SelectAttrValue(key, ""); v != "" {
			symbol.CreateAttr(key, v)
		}
	}

	var namespaces []etree.Attr
	for _, attr := range icon.Attr {
		if attr.Space == "xmlns" {
			namespaces = append(namespaces, attr)
		}
	}

	for _, child := range icon.ChildElements() {
		symbol.AddChild(child.Copy())
	}
	return symbol, namespaces, nil
}
