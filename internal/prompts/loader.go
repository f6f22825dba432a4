package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a template library from a YAML file. Templates not present
// in the file keep their embedded defaults.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	lib := Default()
	var overlay Library
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}

	if overlay.Background != "" {
		lib.Background = overlay.Background
	}
	for name, tmpl := range overlay.Roles {
		lib.Roles[name] = tmpl
	}
	for name, tmpl := range overlay.Phases {
		lib.Phases[name] = tmpl
	}
	if overlay.TaskSpecify != "" {
		lib.TaskSpecify = overlay.TaskSpecify
	}
	if overlay.TaskPlan != "" {
		lib.TaskPlan = overlay.TaskPlan
	}

	return lib, nil
}
