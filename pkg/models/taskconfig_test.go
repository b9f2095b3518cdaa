package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTaskConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TaskConfig
		wantErr bool
	}{
		{
			name:    "valid minimal",
			cfg:     TaskConfig{UrgingTemplate: "report back"},
			wantErr: false,
		},
		{
			name:    "empty urging template",
			cfg:     TaskConfig{UrgingTemplate: ""},
			wantErr: true,
		},
		{
			name:    "whitespace urging template",
			cfg:     TaskConfig{UrgingTemplate: "   \n\t"},
			wantErr: true,
		},
		{
			name:    "negative recursion level",
			cfg:     TaskConfig{UrgingTemplate: "go", MaxRecursionLevel: -1},
			wantErr: true,
		},
		{
			name: "unknown parameter type",
			cfg: TaskConfig{
				UrgingTemplate: "go",
				Parameters:     []Parameter{{Name: "x", Type: "weird"}},
			},
			wantErr: true,
		},
		{
			name: "nested parameters ok",
			cfg: TaskConfig{
				UrgingTemplate: "go",
				Parameters: []Parameter{
					{Name: "hosts", Type: ParamTypeArray, Items: []Parameter{{Name: "host", Type: ParamTypePrimitive}}},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskConfig_Parameter(t *testing.T) {
	cfg := TaskConfig{
		UrgingTemplate: "go",
		Parameters: []Parameter{
			{Name: "alpha", Required: true},
			{Name: "beta"},
		},
	}

	if p := cfg.Parameter("alpha"); p == nil || !p.Required {
		t.Errorf("Parameter(alpha) = %+v, want required parameter", p)
	}
	if p := cfg.Parameter("gamma"); p != nil {
		t.Errorf("Parameter(gamma) = %+v, want nil", p)
	}
}

func TestTaskConfig_ToScope(t *testing.T) {
	cfg := TaskConfig{
		Name:              "summarize",
		UrgingTemplate:    "go",
		MaxRecursionLevel: 3,
		Parameters:        []Parameter{{Name: "topic"}, {Name: "depth"}},
		Parallel: &ParallelPolicy{
			Mode:           ModeParameterBased,
			ResultStrategy: StrategyWaitForAll,
			MaxConcurrency: 0,
		},
	}

	scope := cfg.ToScope()

	if scope["Name"] != "summarize" {
		t.Errorf("scope[Name] = %v", scope["Name"])
	}
	if scope["MaxRecursionLevel"] != 3 {
		t.Errorf("scope[MaxRecursionLevel] = %v", scope["MaxRecursionLevel"])
	}
	names, ok := scope["ParameterNames"].([]string)
	if !ok || len(names) != 2 || names[0] != "topic" {
		t.Errorf("scope[ParameterNames] = %v", scope["ParameterNames"])
	}
	// MaxConcurrency 0 normalizes to 1 in scope too.
	if scope["MaxConcurrency"] != 1 {
		t.Errorf("scope[MaxConcurrency] = %v, want 1", scope["MaxConcurrency"])
	}
}

func TestTaskConfig_ToScope_NoParallel(t *testing.T) {
	cfg := TaskConfig{Name: "solo", UrgingTemplate: "go"}

	scope := cfg.ToScope()
	if _, ok := scope["ResultStrategy"]; ok {
		t.Error("scope should not carry ResultStrategy without a parallel policy")
	}
}

func TestLoadTaskFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	content := `name: review
prompt_template: "Review {{.target}}"
urging_template: "Report your findings when done."
max_recursion_level: 2
parameters:
  - name: target
    required: true
    type: primitive
parallel:
  mode: list_based
  list_parameter: targets
  max_concurrency: 4
  result_strategy: wait_for_all
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTaskFile(path)
	if err != nil {
		t.Fatalf("LoadTaskFile() error = %v", err)
	}

	if cfg.Name != "review" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.MaxRecursionLevel != 2 {
		t.Errorf("MaxRecursionLevel = %d", cfg.MaxRecursionLevel)
	}
	if cfg.Parallel == nil || cfg.Parallel.Mode != ModeListBased {
		t.Errorf("Parallel = %+v", cfg.Parallel)
	}
	if cfg.Parallel.ListParameter != "targets" {
		t.Errorf("ListParameter = %q", cfg.Parallel.ListParameter)
	}
	if len(cfg.Parameters) != 1 || !cfg.Parameters[0].Required {
		t.Errorf("Parameters = %+v", cfg.Parameters)
	}
}

func TestLoadTaskFile_Missing(t *testing.T) {
	if _, err := LoadTaskFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
