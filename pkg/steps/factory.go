package steps

import (
	"fmt"

	"github.com/systemstart/assetpipe/pkg/api"
)

// NewStep creates a Step implementation from a StepConfig.
func NewStep(cfg api.StepConfig) (Step, error) {
	switch cfg.Type {
	case api.StepTypeClean:
		return NewCleanStep(cfg.Name, cfg.Clean), nil
	case api.StepTypeCopy:
		return NewCopyStep(cfg.Name, cfg.Copy), nil
	case api.StepTypeStyles:
		return NewStylesStep(cfg.Name, cfg.Styles), nil
	case api.StepTypeScripts:
		return NewScriptsStep(cfg.Name, cfg.Scripts), nil
	case api.StepTypeImages:
		return NewImagesStep(cfg.Name, cfg.Images), nil
	case api.StepTypeWebP:
		return NewWebPStep(cfg.Name, cfg.WebP), nil
	case api.StepTypeSprite:
		return NewSpriteStep(cfg.Name, cfg.Sprite), nil
	case api.StepTypeHTML:
		return NewHTMLStep(cfg.Name, cfg.HTML), nil
	case api.StepTypeScaffold:
		return NewScaffoldStep(cfg.Name, cfg.Scaffold), nil
	default:
		return nil, fmt.Errorf("unknown step type: %s", cfg.Type)
	}
}
