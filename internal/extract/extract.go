// Package extract derives the ordered fan-out work items for one
// orchestration call from request data and a parallel policy.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hydrakit/hydra/pkg/models"
)

// WorkItems returns the ordered list of work items for the given request
// data and policy. It is a total function: absent or invalid configuration
// yields an empty list, never an error, so the orchestrator can report zero
// work items instead of failing extraction.
func WorkItems(refsources map[string]any, policy *models.ParallelPolicy) []models.WorkItem {
	if policy == nil {
		return nil
	}

	switch policy.Mode {
	case models.ModeParameterBased:
		return parameterItems(refsources, policy)
	case models.ModeListBased:
		return listItems(refsources, policy)
	case models.ModeExternalList:
		return externalItems(policy)
	default:
		return nil
	}
}

// parameterItems yields one item per top-level request-data entry, skipping
// excluded keys and internal bookkeeping keys. Go maps have no insertion
// order, so keys are sorted for a stable order within a call.
func parameterItems(refsources map[string]any, policy *models.ParallelPolicy) []models.WorkItem {
	if len(refsources) == 0 {
		return nil
	}

	keys := make([]string, 0, len(refsources))
	for k := range refsources {
		if strings.HasPrefix(k, models.InternalKeyPrefix) {
			continue
		}
		if policy.Excludes(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]models.WorkItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, models.WorkItem{Name: k, Value: refsources[k]})
	}
	return items
}

// listItems yields one item per element of the named list parameter. The
// item names are index-qualified so each item stays uniquely addressable
// from templates. A missing or non-list parameter yields no items.
func listItems(refsources map[string]any, policy *models.ParallelPolicy) []models.WorkItem {
	if policy.ListParameter == "" || refsources == nil {
		return nil
	}

	raw, ok := refsources[policy.ListParameter]
	if !ok {
		return nil
	}

	elems := asSlice(raw)
	if elems == nil {
		return nil
	}

	items := make([]models.WorkItem, 0, len(elems))
	for i, v := range elems {
		items = append(items, models.WorkItem{
			Name:  fmt.Sprintf("%s[%d]", policy.ListParameter, i),
			Value: v,
		})
	}
	return items
}

// externalItems yields one item per element of the policy's literal list.
func externalItems(policy *models.ParallelPolicy) []models.WorkItem {
	if len(policy.ExternalItems) == 0 {
		return nil
	}

	items := make([]models.WorkItem, 0, len(policy.ExternalItems))
	for i, v := range policy.ExternalItems {
		items = append(items, models.WorkItem{
			Name:  fmt.Sprintf("item[%d]", i),
			Value: v,
		})
	}
	return items
}

// asSlice normalizes the common list shapes request data arrives in.
func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	default:
		return nil
	}
}
