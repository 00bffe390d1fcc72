package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/agentmesh/llm"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LLMOracle implements DecisionOracle and HandoffOracle over a chat
// provider. Replies are parsed defensively: the first JSON object is
// extracted from the text and unknown or missing fields fall back to
// zero values for the caller to default.
type LLMOracle struct {
	provider llm.Provider
	model    string
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// LLMOracleOption configures an LLMOracle.
type LLMOracleOption func(*LLMOracle)

// WithModel sets the model name passed to the provider.
func WithModel(model string) LLMOracleOption {
	return func(o *LLMOracle) { o.model = model }
}

// WithRateLimit throttles oracle calls. Zero limit disables throttling.
func WithRateLimit(limit rate.Limit, burst int) LLMOracleOption {
	return func(o *LLMOracle) {
		if limit > 0 {
			o.limiter = rate.NewLimiter(limit, burst)
		}
	}
}

// NewLLMOracle creates an oracle backed by the given provider.
func NewLLMOracle(provider llm.Provider, logger *zap.Logger, opts ...LLMOracleOption) (*LLMOracle, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &LLMOracle{
		provider: provider,
		logger:   logger.With(zap.String("component", "llm_oracle")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Decide asks the provider for a routing decision.
func (o *LLMOracle) Decide(ctx context.Context, q RouteQuery) (*RawDecision, error) {
	prompt := buildRoutePrompt(q)

	var raw RawDecision
	if err := o.complete(ctx, routeSystemPrompt, prompt, &raw); err != nil {
		return nil, fmt.Errorf("routing decision: %w", err)
	}
	return &raw, nil
}

// DecideHandoff asks the provider whether work should be handed off.
func (o *LLMOracle) DecideHandoff(ctx context.Context, q HandoffQuery) (*HandoffDecision, error) {
	prompt := buildHandoffPrompt(q)

	var d HandoffDecision
	if err := o.complete(ctx, handoffSystemPrompt, prompt, &d); err != nil {
		return nil, fmt.Errorf("handoff decision: %w", err)
	}
	return &d, nil
}

// BuildPackage asks the provider to draft handoff package content.
func (o *LLMOracle) BuildPackage(ctx context.Context, q PackageQuery) (*PackageDraft, error) {
	prompt := buildPackagePrompt(q)

	var draft PackageDraft
	if err := o.complete(ctx, packageSystemPrompt, prompt, &draft); err != nil {
		return nil, fmt.Errorf("handoff package: %w", err)
	}
	return &draft, nil
}

// complete runs one provider call and parses the reply into dest.
func (o *LLMOracle) complete(ctx context.Context, system, user string, dest any) error {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := &llm.ChatRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	}
	if traceID, ok := types.TraceID(ctx); ok {
		req.TraceID = traceID
	}

	resp, err := o.provider.Completion(ctx, req)
	if err != nil {
		return err
	}

	body, err := extractJSON(resp.Content)
	if err != nil {
		o.logger.Warn("oracle reply carried no JSON",
			zap.String("provider", o.provider.Name()),
			zap.String("preview", preview(resp.Content, 120)),
		)
		return err
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return fmt.Errorf("parse oracle reply: %w", err)
	}
	return nil
}

const routeSystemPrompt = `You are a task router for a team of specialist agents.
Reply with a single JSON object and nothing else:
{"assigned_to": ["agent", ...], "execution_mode": "delegated|sequential|parallel",
"subtasks": ["...", ...], "tool_plan": ["tool", ...], "tool_goals": ["...", ...],
"latency_budget": "low|medium|high", "reasoning": "..."}`

const handoffSystemPrompt = `You decide whether in-progress work should be handed to a different agent.
Reply with a single JSON object and nothing else:
{"should_handoff": true|false, "next_agent": "name or empty", "reason": "..."}`

const packageSystemPrompt = `You draft a structured handoff package for work moving between two agents.
Reply with a single JSON object and nothing else:
{"package_text": "...", "success_criteria": ["...", ...], "quality_checklist": ["...", ...],
"tool_requirements": ["...", ...], "estimated_effort": "simple|moderate|complex"}`

func buildRoutePrompt(q RouteQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", q.Task)
	fmt.Fprintf(&b, "Team:\n%s\n", q.TeamDescription)
	fmt.Fprintf(&b, "Tools:\n%s\n", q.ToolDescription)
	if q.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", q.Context)
	}
	fmt.Fprintf(&b, "Current date: %s\n", q.CurrentDate)
	return b.String()
}

func buildHandoffPrompt(q HandoffQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current agent: %s\n\n", q.CurrentAgent)
	fmt.Fprintf(&b, "Work completed so far:\n%s\n\n", q.WorkCompleted)
	fmt.Fprintf(&b, "Remaining work:\n%s\n\n", q.RemainingWork)
	b.WriteString("Candidate agents:\n")
	for _, c := range q.Candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	return b.String()
}

func buildPackagePrompt(q PackageQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Handoff from %s to %s.\n\n", q.FromAgent, q.ToAgent)
	fmt.Fprintf(&b, "Original task:\n%s\n\n", q.Task)
	fmt.Fprintf(&b, "Work completed:\n%s\n\n", q.WorkCompleted)
	if len(q.Objectives) > 0 {
		b.WriteString("Remaining objectives:\n")
		for _, obj := range q.Objectives {
			fmt.Fprintf(&b, "- %s\n", obj)
		}
		b.WriteString("\n")
	}
	if len(q.Artifacts) > 0 {
		b.WriteString("Available artifacts:\n")
		for name := range q.Artifacts {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Handoff reason: %s\n", q.Reason)
	return b.String()
}

// preview truncates on rune boundaries so logs stay valid UTF-8.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
