package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParamType classifies a declared task parameter.
type ParamType string

const (
	// ParamTypePrimitive is a scalar value (string, number, bool).
	ParamTypePrimitive ParamType = "primitive"
	// ParamTypeArray is a list of values.
	ParamTypeArray ParamType = "array"
	// ParamTypeObject is a nested map of values.
	ParamTypeObject ParamType = "object"
)

// Valid returns true if the param type is a known value.
func (t ParamType) Valid() bool {
	switch t {
	case ParamTypePrimitive, ParamTypeArray, ParamTypeObject:
		return true
	default:
		return false
	}
}

// Parameter describes one declared input of a task template.
// Array and object parameters may carry nested element declarations.
type Parameter struct {
	// Name is the parameter name as it appears in request data and templates.
	Name string `json:"name" yaml:"name"`
	// Description explains the parameter to whoever fills in request data.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Required marks the parameter as mandatory.
	Required bool `json:"required" yaml:"required"`
	// Type is the parameter's type tag.
	Type ParamType `json:"type" yaml:"type"`
	// Items describes the nested shape of array/object parameters.
	Items []Parameter `json:"items,omitempty" yaml:"items,omitempty"`
}

// InternalKeyPrefix marks request-data keys that carry parameter-identity
// bookkeeping rather than task input. Keys with this prefix never become
// work items and never enter template scope. Matching is case-sensitive.
const InternalKeyPrefix = "__"

// ConfigScopeKey is the reserved template-scope key exposing the task config.
const ConfigScopeKey = "Config"

// ItemScopeKey is the reserved template-scope key exposing the current
// work item. It is always present so templates can reference it
// unconditionally, even outside parallel runs.
const ItemScopeKey = "Item"

// TaskConfig is the immutable description of a spawnable task: prompt and
// urging templates, declared parameters, the recursion ceiling, and an
// optional parallel-execution policy. Callers build one per invocation; no
// component mutates it once orchestration starts.
type TaskConfig struct {
	// Name identifies the task template.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Description summarizes what the spawned session should accomplish.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// PromptTemplate is the initial prompt sent to a child session.
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`
	// UrgingTemplate is the follow-up prompt that pushes a child session
	// toward reporting completion. It is mandatory.
	UrgingTemplate string `json:"urging_template" yaml:"urging_template"`
	// Parameters declares the task's inputs.
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// MaxRecursionLevel caps how many levels of child spawning may stack.
	// Zero disallows spawning entirely; negative values are invalid.
	MaxRecursionLevel int `json:"max_recursion_level" yaml:"max_recursion_level"`
	// Parallel is the optional fan-out policy. Nil means single-shot.
	Parallel *ParallelPolicy `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// Parameter returns the declared parameter with the given name, or nil.
func (c *TaskConfig) Parameter(name string) *Parameter {
	for i := range c.Parameters {
		if c.Parameters[i].Name == name {
			return &c.Parameters[i]
		}
	}
	return nil
}

// ToScope returns the explicit set of key/value pairs the config exposes to
// templates under the reserved config scope key. Enumerated by hand so the
// renderer never reflects over the config at render time.
func (c *TaskConfig) ToScope() map[string]any {
	scope := map[string]any{
		"Name":              c.Name,
		"Description":       c.Description,
		"MaxRecursionLevel": c.MaxRecursionLevel,
	}

	names := make([]string, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		names = append(names, p.Name)
	}
	scope["ParameterNames"] = names

	if c.Parallel != nil {
		scope["ExecutionMode"] = string(c.Parallel.Mode)
		scope["ResultStrategy"] = string(c.Parallel.ResultStrategy)
		scope["MaxConcurrency"] = c.Parallel.EffectiveMaxConcurrency()
	}

	return scope
}

// Validate checks the config for structural problems that should fail an
// invocation before any session is created.
func (c *TaskConfig) Validate() error {
	if strings.TrimSpace(c.UrgingTemplate) == "" {
		return fmt.Errorf("urging template cannot be empty")
	}
	if c.MaxRecursionLevel < 0 {
		return fmt.Errorf("max recursion level cannot be negative: %d", c.MaxRecursionLevel)
	}
	for _, p := range c.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if p.Type != "" && !p.Type.Valid() {
			return fmt.Errorf("parameter %s: unknown type %q", p.Name, p.Type)
		}
	}
	return nil
}

// LoadTaskFile reads a TaskConfig from a YAML file.
func LoadTaskFile(path string) (*TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	cfg := &TaskConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}

	return cfg, nil
}
