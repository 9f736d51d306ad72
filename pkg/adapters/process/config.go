package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the step bindings file looked up next to a workflow.
const DefaultConfigFile = "holon.steps.yaml"

// StepConfig binds one callable step to an external command.
type StepConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of holon.steps.yaml.
type ConfigFile struct {
	Steps []StepConfig `yaml:"steps" json:"steps"`
}

// LoadSteps reads a step bindings file (YAML, or JSON by extension) and
// returns the configs keyed by step name. A missing file yields no steps.
func LoadSteps(path string) (map[string]StepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]StepConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read step bindings: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	steps := make(map[string]StepConfig)
	for _, step := range cfg.Steps {
		if step.Name == "" {
			continue
		}
		if step.Command == "" {
			return nil, fmt.Errorf("step %s: command is required", step.Name)
		}
		steps[step.Name] = step
	}
	return steps, nil
}
