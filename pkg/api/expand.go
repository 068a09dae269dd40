package api

import (
	"fmt"
	"slices"
	"strings"
)

// Step returns the step configuration with the given name.
func (c *Config) Step(name string) (StepConfig, bool) {
	for _, s := range c.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepConfig{}, false
}

// TaskNames lists every runnable name: steps in declaration order, then groups sorted.
func (c *Config) TaskNames() []string {
	names := make([]string, 0, len(c.Steps)+len(c.Groups))
	for _, s := range c.Steps {
		names = append(names, s.Name)
	}
	return append(names, sortedKeys(c.Groups)...)
}

// Expand flattens a step or group into the ordered list of step names it
// runs. Nested groups are inlined in place; a step reached twice keeps its
// first position. A group cycle is reported as a ConfigError naming the path.
func (c *Config) Expand(name string) ([]string, error) {
	var (
		plan     []string
		seen     = make(map[string]bool)
		visiting []string
	)

	var visit func(task string) error
	visit = func(task string) error {
		members, isGroup := c.Groups[task]
		if !isGroup {
			if _, ok := c.Step(task); !ok {
				return configErrorf("", "unknown task %q", task)
			}
			if !seen[task] {
				seen[task] = true
				plan = append(plan, task)
			}
			return nil
		}

		if i := slices.Index(visiting, task); i >= 0 {
			cycle := append(slices.Clone(visiting[i:]), task)
			return configErrorf(fmt.Sprintf("group %q", task), "cycle detected: %s", strings.Join(cycle, " -> "))
		}
		visiting = append(visiting, task)
		for _, member := range members {
			if err := visit(member); err != nil {
				return err
			}
		}
		visiting = visiting[:len(visiting)-1]
		return nil
	}

	if err := visit(name); err != nil {
		return nil, err
	}
	return plan, nil
}
