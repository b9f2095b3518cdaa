package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/hydrakit/hydra/pkg/models"
)

func TestRender_EmptyTemplate(t *testing.T) {
	for _, tmpl := range []string{"", "   ", "\n\t "} {
		got, err := Render(tmpl, map[string]any{"a": 1}, nil, models.WorkItem{})
		if err != nil {
			t.Errorf("Render(%q) error = %v", tmpl, err)
		}
		if got != "" {
			t.Errorf("Render(%q) = %q, want empty", tmpl, got)
		}
	}
}

func TestRender_RequestData(t *testing.T) {
	got, err := Render("Investigate {{.topic}} for {{.team}}",
		map[string]any{"topic": "latency", "team": "infra"}, nil, models.WorkItem{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "Investigate latency for infra" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_DeclaredParameters(t *testing.T) {
	cfg := &models.TaskConfig{
		UrgingTemplate: "go",
		Parameters: []models.Parameter{
			{Name: "topic", Required: true},
			{Name: "extra"},
		},
	}

	// Required parameter missing from request data renders empty, not a failure.
	got, err := Render("topic=[{{.topic}}]", map[string]any{}, cfg, models.WorkItem{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "topic=[]" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_ConfigScope(t *testing.T) {
	cfg := &models.TaskConfig{
		Name:              "audit",
		UrgingTemplate:    "go",
		MaxRecursionLevel: 2,
	}

	got, err := Render("task {{.Config.Name}} depth {{.Config.MaxRecursionLevel}}",
		nil, cfg, models.WorkItem{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "task audit depth 2" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_ItemAlwaysPresent(t *testing.T) {
	// Not running in parallel: Item is present with empty fields, so a
	// template referencing it still renders.
	got, err := Render("item={{.Item.Name}}", nil, nil, models.WorkItem{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "item=" {
		t.Errorf("Render() = %q", got)
	}

	got, err = Render("{{.Item.Name}}={{.Item.Value}}", nil, nil,
		models.WorkItem{Name: "host[0]", Value: "db1"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "host[0]=db1" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_UnbalancedDelimiters(t *testing.T) {
	_, err := Render("hello {{.name", map[string]any{"name": "x"}, nil, models.WorkItem{})
	if err == nil {
		t.Fatal("expected error for unbalanced delimiters")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *prompt.Error", err)
	}
	if !strings.Contains(terr.Error(), "unbalanced") {
		t.Errorf("error = %q", terr.Error())
	}
}

func TestRender_ParseFailure(t *testing.T) {
	_, err := Render("{{if .x}}no end", nil, nil, models.WorkItem{})
	if err == nil {
		t.Fatal("expected parse error")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *prompt.Error", err)
	}
}

func TestRender_ExecFailure(t *testing.T) {
	// toJSON cannot marshal a channel; the helper's error surfaces as a
	// template error rather than a panic.
	_, err := Render("{{toJSON .bad}}", map[string]any{"bad": make(chan int)}, nil, models.WorkItem{})
	if err == nil {
		t.Fatal("expected execution error")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *prompt.Error", err)
	}
}

func TestRender_Funcs(t *testing.T) {
	got, err := Render(`{{upper .name}} {{toJSON .tags}}`,
		map[string]any{"name": "ada", "tags": []string{"a", "b"}}, nil, models.WorkItem{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != `ADA ["a","b"]` {
		t.Errorf("Render() = %q", got)
	}
}

func TestBuildScope_Precedence(t *testing.T) {
	cfg := &models.TaskConfig{
		UrgingTemplate: "go",
		Parameters:     []models.Parameter{{Name: "topic", Required: true}},
	}
	refsources := map[string]any{
		"topic":    "from-data",
		"other":    "kept",
		"__hidden": "dropped",
	}

	scope := BuildScope(refsources, cfg, models.WorkItem{Name: "n", Value: "v"})

	if scope["topic"] != "from-data" {
		t.Errorf("topic = %v", scope["topic"])
	}
	if scope["other"] != "kept" {
		t.Errorf("other = %v", scope["other"])
	}
	if _, ok := scope["__hidden"]; ok {
		t.Error("bookkeeping key leaked into scope")
	}
	if _, ok := scope[models.ConfigScopeKey]; !ok {
		t.Error("Config scope key missing")
	}
	item, ok := scope[models.ItemScopeKey].(map[string]any)
	if !ok || item["Name"] != "n" || item["Value"] != "v" {
		t.Errorf("Item = %v", scope[models.ItemScopeKey])
	}
}
