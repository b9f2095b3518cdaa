// Package prompt renders prompt and urging templates against the scope of
// one session run: declared parameters, request data, the task config, and
// the current work item.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/hydrakit/hydra/pkg/models"
)

// Error is a template failure: unbalanced delimiters, a parse error, or a
// failure while executing the template. It is local to one work item; the
// orchestrator turns it into a failed outcome instead of aborting the batch.
type Error struct {
	// Reason describes what went wrong.
	Reason string
	// Err is the underlying parse/execute error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("template error: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Render resolves tmpl against the scope built from the request data, the
// config's declared parameters, the config itself (under the reserved
// Config key), and the current work item (under the reserved Item key,
// always present). An empty or whitespace-only template renders to an
// empty string without invoking the template engine.
func Render(tmpl string, refsources map[string]any, cfg *models.TaskConfig, item models.WorkItem) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return "", nil
	}

	if err := checkDelimiters(tmpl); err != nil {
		return "", err
	}

	parsed, err := template.New("prompt").Funcs(funcMap()).Parse(tmpl)
	if err != nil {
		return "", &Error{Reason: "parse failed", Err: err}
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, BuildScope(refsources, cfg, item)); err != nil {
		return "", &Error{Reason: "render failed", Err: err}
	}

	return buf.String(), nil
}

// BuildScope assembles the template scope. Earlier sources win on name
// collisions: declared parameters first, then remaining request data, then
// the reserved Config and Item keys.
func BuildScope(refsources map[string]any, cfg *models.TaskConfig, item models.WorkItem) map[string]any {
	scope := make(map[string]any)

	// Declared parameters, filled from request data. A required parameter
	// with no value stays present-but-empty so templates referencing it
	// render instead of failing; an absent optional parameter is omitted.
	if cfg != nil {
		for _, p := range cfg.Parameters {
			if v, ok := refsources[p.Name]; ok {
				scope[p.Name] = v
			} else if p.Required {
				scope[p.Name] = ""
			}
		}
	}

	// Remaining request data, minus bookkeeping keys.
	for k, v := range refsources {
		if strings.HasPrefix(k, models.InternalKeyPrefix) {
			continue
		}
		if _, bound := scope[k]; bound {
			continue
		}
		scope[k] = v
	}

	if cfg != nil {
		scope[models.ConfigScopeKey] = cfg.ToScope()
	} else {
		scope[models.ConfigScopeKey] = map[string]any{}
	}

	// Item is always present so templates can reference it unconditionally.
	scope[models.ItemScopeKey] = map[string]any{
		"Name":  item.Name,
		"Value": item.Value,
	}

	return scope
}

// checkDelimiters rejects templates whose {{ and }} counts disagree before
// the parser gets a chance to produce a less direct message.
func checkDelimiters(tmpl string) error {
	opens := strings.Count(tmpl, "{{")
	closes := strings.Count(tmpl, "}}")
	if opens != closes {
		return &Error{Reason: fmt.Sprintf("unbalanced delimiters: %d {{ vs %d }}", opens, closes)}
	}
	return nil
}
