package watch

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/assetpipe/pkg/api"
)

// Binding maps a glob over project-relative paths to the tasks re-run when
// a matching file changes.
type Binding struct {
	Pattern string
	Tasks   []string
	Reload  bool
}

// BindingsFromConfig converts validated watch configuration.
func BindingsFromConfig(cfg []api.WatchConfig) []Binding {
	bindings := make([]Binding, 0, len(cfg))
	for _, w := range cfg {
		bindings = append(bindings, Binding{Pattern: w.Pattern, Tasks: w.Tasks, Reload: w.Reload})
	}
	return bindings
}

// Matches reports whether the slash-separated path matches the binding.
func (b Binding) Matches(rel string) bool {
	ok, err := doublestar.Match(b.Pattern, rel)
	return err == nil && ok
}
