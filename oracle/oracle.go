// Package oracle defines the external decision-making contracts consumed by
// the router and the handoff manager, plus an implementation backed by a
// chat provider. The oracle is a black box: it receives formatted task and
// team descriptions and returns loosely structured decisions that callers
// normalize into canonical shapes.
package oracle

import "context"

// RouteQuery carries everything the decision oracle needs to assign a task.
type RouteQuery struct {
	Task            string
	TeamDescription string
	ToolDescription string
	Context         string
	CurrentDate     string
}

// RawDecision is a routing decision exactly as the oracle produced it,
// before normalization. Field types are deliberately loose: providers
// answer with strings where lists are expected and vice versa.
type RawDecision struct {
	AssignedTo    StringList `json:"assigned_to"`
	ExecutionMode string     `json:"execution_mode"`
	Subtasks      StringList `json:"subtasks"`
	ToolPlan      StringList `json:"tool_plan"`
	ToolGoals     StringList `json:"tool_goals"`
	LatencyBudget string     `json:"latency_budget"`
	Reasoning     string     `json:"reasoning"`
}

// DecisionOracle produces routing decisions. A transport or parse failure
// is returned as an error; the router treats it as fatal for that call.
type DecisionOracle interface {
	Decide(ctx context.Context, q RouteQuery) (*RawDecision, error)
}

// Candidate names an agent eligible to receive a handoff.
type Candidate struct {
	Name        string
	Description string
}

// HandoffQuery asks whether work should move to a different agent.
type HandoffQuery struct {
	CurrentAgent  string
	WorkCompleted string
	RemainingWork string
	Candidates    []Candidate
}

// HandoffDecision is the oracle's verdict on a proposed handoff. The
// ShouldHandoff flag is the single source of truth; NextAgent is only
// meaningful when it is true.
type HandoffDecision struct {
	ShouldHandoff bool   `json:"should_handoff"`
	NextAgent     string `json:"next_agent"`
	Reason        string `json:"reason"`
}

// PackageQuery asks the oracle to draft the content of a handoff package.
type PackageQuery struct {
	FromAgent     string
	ToAgent       string
	WorkCompleted string
	Artifacts     map[string]any
	Objectives    []string
	Task          string
	Reason        string
}

// PackageDraft is the oracle-produced content for a handoff package.
type PackageDraft struct {
	PackageText      string     `json:"package_text"`
	SuccessCriteria  StringList `json:"success_criteria"`
	QualityChecklist StringList `json:"quality_checklist"`
	ToolRequirements StringList `json:"tool_requirements"`
	EstimatedEffort  string     `json:"estimated_effort"`
}

// HandoffOracle makes handoff decisions and drafts handoff packages.
// Callers fail open: any error here degrades to pass-through behavior.
type HandoffOracle interface {
	DecideHandoff(ctx context.Context, q HandoffQuery) (*HandoffDecision, error)
	BuildPackage(ctx context.Context, q PackageQuery) (*PackageDraft, error)
}
