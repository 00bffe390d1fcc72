package handoff

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/agentmesh/types"
)

// Package is a structured transfer of work between two agents in a
// sequential chain. Append-only: never mutated after creation.
type Package struct {
	FromAgent           string         `json:"from_agent"`
	ToAgent             string         `json:"to_agent"`
	Task                string         `json:"task"`
	WorkCompleted       string         `json:"work_completed"`
	Artifacts           map[string]any `json:"artifacts,omitempty"`
	RemainingObjectives []string       `json:"remaining_objectives,omitempty"`
	SuccessCriteria     []string       `json:"success_criteria,omitempty"`
	ToolRequirements    []string       `json:"tool_requirements,omitempty"`
	EstimatedEffort     types.Effort   `json:"estimated_effort"`
	QualityChecklist    []string       `json:"quality_checklist,omitempty"`
	HandoffReason       string         `json:"handoff_reason"`
	CreatedAt           time.Time      `json:"created_at"`
}

// ToMap converts the package to its map form for serialization boundaries.
func (p *Package) ToMap() map[string]any {
	return map[string]any{
		"from_agent":           p.FromAgent,
		"to_agent":             p.ToAgent,
		"task":                 p.Task,
		"work_completed":       p.WorkCompleted,
		"artifacts":            p.Artifacts,
		"remaining_objectives": p.RemainingObjectives,
		"success_criteria":     p.SuccessCriteria,
		"tool_requirements":    p.ToolRequirements,
		"estimated_effort":     string(p.EstimatedEffort),
		"quality_checklist":    p.QualityChecklist,
		"handoff_reason":       p.HandoffReason,
		"created_at":           p.CreatedAt,
	}
}

// FromMap reconstructs a Package from its map form.
func FromMap(m map[string]any) *Package {
	p := &Package{
		FromAgent:           asString(m["from_agent"]),
		ToAgent:             asString(m["to_agent"]),
		Task:                asString(m["task"]),
		WorkCompleted:       asString(m["work_completed"]),
		RemainingObjectives: asStringSlice(m["remaining_objectives"]),
		SuccessCriteria:     asStringSlice(m["success_criteria"]),
		ToolRequirements:    asStringSlice(m["tool_requirements"]),
		EstimatedEffort:     types.Effort(asString(m["estimated_effort"])),
		QualityChecklist:    asStringSlice(m["quality_checklist"]),
		HandoffReason:       asString(m["handoff_reason"]),
	}
	if artifacts, ok := m["artifacts"].(map[string]any); ok {
		p.Artifacts = artifacts
	}
	if createdAt, ok := m["created_at"].(time.Time); ok {
		p.CreatedAt = createdAt
	}
	return p
}

// Format renders the structured handoff block passed as input to the next
// agent in the chain, replacing the raw previous output.
func (p *Package) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== HANDOFF: %s -> %s ===\n", p.FromAgent, p.ToAgent)
	fmt.Fprintf(&b, "Task: %s\n", p.Task)
	fmt.Fprintf(&b, "Reason: %s\n", p.HandoffReason)
	fmt.Fprintf(&b, "Estimated effort: %s\n", p.EstimatedEffort)

	fmt.Fprintf(&b, "\nWork completed:\n%s\n", p.WorkCompleted)

	writeList(&b, "Remaining objectives", p.RemainingObjectives)
	writeList(&b, "Success criteria", p.SuccessCriteria)
	writeList(&b, "Quality checklist", p.QualityChecklist)
	writeList(&b, "Required tools", p.ToolRequirements)

	if len(p.Artifacts) > 0 {
		b.WriteString("\nAvailable artifacts:\n")
		for _, name := range sortedKeys(p.Artifacts) {
			fmt.Fprintf(&b, "- %s: %v\n", name, p.Artifacts[name])
		}
	}
	b.WriteString("=== END HANDOFF ===")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		if len(vv) == 0 {
			return nil
		}
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprint(item))
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
