package api

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var validStepTypes = map[string]bool{
	StepTypeClean:    true,
	StepTypeCopy:     true,
	StepTypeStyles:   true,
	StepTypeScripts:  true,
	StepTypeImages:   true,
	StepTypeWebP:     true,
	StepTypeSprite:   true,
	StepTypeHTML:     true,
	StepTypeScaffold: true,
}

// ScriptTargets lists the accepted scripts.target values.
var ScriptTargets = []string{"es5", "es2015", "es2016", "es2017", "es2018", "es2019", "es2020", "es2021", "es2022", "esnext"}

// ConfigError reports a malformed configuration. It is always fatal and is
// raised before anything touches the filesystem.
type ConfigError struct {
	Subject string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return "configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration: %s: %v", e.Subject, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(subject, format string, args ...any) *ConfigError {
	return &ConfigError{Subject: subject, Err: fmt.Errorf(format, args...)}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return configErrorf("", "no steps defined")
	}

	names := make(map[string]int)
	for i, step := range c.Steps {
		if step.Name == "" {
			return configErrorf(fmt.Sprintf("step %d", i), "name is required")
		}
		if step.Name == StartTask {
			return configErrorf(fmt.Sprintf("step %d", i), "name %q is reserved", StartTask)
		}
		if prev, exists := names[step.Name]; exists {
			return configErrorf(fmt.Sprintf("step %d", i), "duplicate step name %q (first defined at step %d)", step.Name, prev)
		}
		names[step.Name] = i

		if !validStepTypes[step.Type] {
			return configErrorf(stepSubject(step), "unknown type %q", step.Type)
		}
		if err := validateStepConfig(step); err != nil {
			return &ConfigError{Subject: stepSubject(step), Err: err}
		}
	}

	for _, step := range c.Steps {
		for _, req := range step.Requires {
			if _, ok := names[req]; !ok {
				return configErrorf(stepSubject(step), "requires unknown step %q", req)
			}
			if req == step.Name {
				return configErrorf(stepSubject(step), "requires itself")
			}
		}
	}

	if err := c.validateGroups(names); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func stepSubject(step StepConfig) string {
	return fmt.Sprintf("step %q", step.Name)
}

func (c *Config) validateGroups(stepNames map[string]int) error {
	for _, group := range sortedKeys(c.Groups) {
		if group == "" {
			return configErrorf("", "group name is required")
		}
		if group == StartTask {
			return configErrorf(fmt.Sprintf("group %q", group), "name is reserved")
		}
		if _, clash := stepNames[group]; clash {
			return configErrorf(fmt.Sprintf("group %q", group), "name is already used by a step")
		}
		if len(c.Groups[group]) == 0 {
			return configErrorf(fmt.Sprintf("group %q", group), "has no members")
		}
		for _, member := range c.Groups[group] {
			if !c.hasTask(member) {
				return configErrorf(fmt.Sprintf("group %q", group), "unknown member %q", member)
			}
		}
	}

	for _, group := range sortedKeys(c.Groups) {
		plan, err := c.Expand(group)
		if err != nil {
			return err
		}
		if err := c.validateRequiresOrder(group, plan); err != nil {
			return err
		}
	}
	return nil
}

// validateRequiresOrder checks that a required step, when part of the same
// plan, is scheduled before the step requiring it.
func (c *Config) validateRequiresOrder(group string, plan []string) error {
	position := make(map[string]int, len(plan))
	for i, name := range plan {
		position[name] = i
	}
	for _, name := range plan {
		step, _ := c.Step(name)
		for _, req := range step.Requires {
			reqPos, ok := position[req]
			if ok && reqPos > position[name] {
				return configErrorf(fmt.Sprintf("group %q", group), "step %q requires %q but runs before it", name, req)
			}
		}
	}
	return nil
}

func (c *Config) validateWatch() error {
	for i, w := range c.Watch {
		subject := fmt.Sprintf("watch %d", i)
		if w.Pattern == "" {
			return configErrorf(subject, "pattern is required")
		}
		if !doublestar.ValidatePattern(w.Pattern) {
			return configErrorf(subject, "invalid pattern %q", w.Pattern)
		}
		if len(w.Tasks) == 0 {
			return configErrorf(subject, "tasks are required")
		}
		for _, task := range w.Tasks {
			if !c.hasTask(task) {
				return configErrorf(subject, "unknown task %q", task)
			}
		}
	}
	if c.Serve.Before != "" && !c.hasTask(c.Serve.Before) {
		return configErrorf("serve", "unknown before task %q", c.Serve.Before)
	}
	return nil
}

func (c *Config) hasTask(name string) bool {
	if _, ok := c.Groups[name]; ok {
		return true
	}
	_, ok := c.Step(name)
	return ok
}

func validateStepConfig(step StepConfig) error {
	switch step.Type {
	case StepTypeClean:
		if step.Clean == nil {
			return fmt.Errorf("clean config is required")
		}
		return validateInsideProject("clean.dir", step.Clean.Dir)
	case StepTypeCopy:
		if step.Copy == nil {
			return fmt.Errorf("copy config is required")
		}
		if err := validateDestination("copy.dest", step.Copy.Dest); err != nil {
			return err
		}
		return validateFilter("copy.files", step.Copy.Files, true)
	case StepTypeStyles:
		return validateStylesConfig(step)
	case StepTypeScripts:
		return validateScriptsConfig(step)
	case StepTypeImages:
		if step.Images == nil {
			return fmt.Errorf("images config is required")
		}
		if err := validateDestination("images.dest", step.Images.Dest); err != nil {
			return err
		}
		return validateFilter("images.files", step.Images.Files, true)
	case StepTypeWebP:
		return validateWebPConfig(step)
	case StepTypeSprite:
		if step.Sprite == nil {
			return fmt.Errorf("sprite config is required")
		}
		if err := validateDestination("sprite.output", step.Sprite.Output); err != nil {
			return err
		}
		return validateFilter("sprite.files", step.Sprite.Files, true)
	case StepTypeHTML:
		if step.HTML == nil {
			return fmt.Errorf("html config is required")
		}
		if err := validateDestination("html.dest", step.HTML.Dest); err != nil {
			return err
		}
		return validateFilter("html.files", step.HTML.Files, true)
	case StepTypeScaffold:
		if step.Scaffold == nil || len(step.Scaffold.Dirs) == 0 {
			return fmt.Errorf("scaffold.dirs is required")
		}
		for _, dir := range step.Scaffold.Dirs {
			if err := validateInsideProject("scaffold.dirs", dir); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStylesConfig(step StepConfig) error {
	if step.Styles == nil {
		return fmt.Errorf("styles config is required")
	}
	if step.Styles.Entry == "" {
		return fmt.Errorf("styles.entry is required")
	}
	if err := validateDestination("styles.dest", step.Styles.Dest); err != nil {
		return err
	}
	if step.Styles.MinName != "" && strings.ContainsRune(step.Styles.MinName, '/') {
		return fmt.Errorf("styles.minName must be a file name, got %q", step.Styles.MinName)
	}
	return nil
}

func validateScriptsConfig(step StepConfig) error {
	if step.Scripts == nil {
		return fmt.Errorf("scripts config is required")
	}
	if err := validateDestination("scripts.dest", step.Scripts.Dest); err != nil {
		return err
	}
	if step.Scripts.Bundle != "" && strings.ContainsRune(step.Scripts.Bundle, '/') {
		return fmt.Errorf("scripts.bundle must be a file name, got %q", step.Scripts.Bundle)
	}
	if step.Scripts.Target != "" && !slices.Contains(ScriptTargets, strings.ToLower(step.Scripts.Target)) {
		return fmt.Errorf("scripts.target %q is not valid (valid: %s)", step.Scripts.Target, strings.Join(ScriptTargets, ", "))
	}
	return validateFilter("scripts.files", step.Scripts.Files, true)
}

func validateWebPConfig(step StepConfig) error {
	if step.WebP == nil {
		return fmt.Errorf("webp config is required")
	}
	if err := validateDestination("webp.dest", step.WebP.Dest); err != nil {
		return err
	}
	if step.WebP.Quality < 0 || step.WebP.Quality > 100 {
		return fmt.Errorf("webp.quality must be between 0 and 100, got %d", step.WebP.Quality)
	}
	return validateFilter("webp.files", step.WebP.Files, true)
}

func validateFilter(field string, f FileFilter, includeRequired bool) error {
	if includeRequired && len(f.Include) == 0 {
		return fmt.Errorf("%s.include is required", field)
	}
	for _, p := range slices.Concat(f.Include, f.Exclude) {
		if p == "" || !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%s: invalid glob %q", field, p)
		}
		if filepath.IsAbs(p) {
			return fmt.Errorf("%s: glob %q must be relative to the project directory", field, p)
		}
	}
	return nil
}

// validateInsideProject rejects paths that would point at the project root
// itself or escape it.
func validateInsideProject(field, dir string) error {
	if dir == "" {
		return fmt.Errorf("%s is required", field)
	}
	if filepath.IsAbs(dir) {
		return fmt.Errorf("%s %q must be relative to the project directory", field, dir)
	}
	cleaned := filepath.ToSlash(filepath.Clean(dir))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%s %q must be inside the project directory", field, dir)
	}
	return nil
}

// validateDestination is validateInsideProject for output paths, which may
// name the project root itself.
func validateDestination(field, dest string) error {
	if dest != "" && filepath.Clean(dest) == "." {
		return nil
	}
	return validateInsideProject(field, dest)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
