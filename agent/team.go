package agent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Team is the read-only registry of agents and tools available to the
// router for one deployment. Agents register once at startup; after that
// the team is shared across requests without further synchronization on
// the hot path (the mutex only guards registration).
type Team struct {
	mu     sync.RWMutex
	agents map[string]Agent
	caps   map[string][]string
	order  []string
	tools  []Tool
	logger *zap.Logger
}

// NewTeam creates an empty team.
func NewTeam(logger *zap.Logger) *Team {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Team{
		agents: make(map[string]Agent),
		caps:   make(map[string][]string),
		logger: logger.With(zap.String("component", "team")),
	}
}

// Register adds an agent with optional capability tags. Registering the
// same name twice replaces the previous entry.
func (t *Team) Register(a Agent, capabilities ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := a.Name()
	if _, exists := t.agents[name]; !exists {
		t.order = append(t.order, name)
	}
	t.agents[name] = a
	t.caps[name] = append([]string(nil), capabilities...)

	t.logger.Info("registered agent",
		zap.String("name", name),
		zap.Strings("capabilities", capabilities),
	)
}

// RegisterTool adds a tool descriptor.
func (t *Team) RegisterTool(tool Tool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tools = append(t.tools, tool)
	t.logger.Info("registered tool", zap.String("name", tool.Name))
}

// Get returns the agent registered under name.
func (t *Team) Get(name string) (Agent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.agents[name]
	return a, ok
}

// Names returns agent names in registration order.
func (t *Team) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Size returns the number of registered agents.
func (t *Team) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.agents)
}

// Capabilities returns the capability tags of the named agent.
func (t *Team) Capabilities(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.caps[name]...)
}

// FirstWithCapability returns the first registered agent carrying the tag.
func (t *Team) FirstWithCapability(capability string) (Agent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, name := range t.order {
		for _, c := range t.caps[name] {
			if c == capability {
				return t.agents[name], true
			}
		}
	}
	return nil, false
}

// Tools returns the registered tool descriptors.
func (t *Team) Tools() []Tool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Tool(nil), t.tools...)
}

// WebSearchTool returns the first registered tool that looks like a web
// search capability, matched by name substring.
func (t *Team) WebSearchTool() (Tool, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tool := range t.tools {
		n := strings.ToLower(tool.Name)
		if strings.Contains(n, "search") || strings.Contains(n, "browse") {
			return tool, true
		}
	}
	return Tool{}, false
}

// DescribeAgents formats the team capability description handed to the
// decision oracle, one agent per line in registration order.
func (t *Team) DescribeAgents() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	for _, name := range t.order {
		a := t.agents[name]
		fmt.Fprintf(&b, "- %s: %s", name, a.Description())
		if caps := t.caps[name]; len(caps) > 0 {
			fmt.Fprintf(&b, " (capabilities: %s)", strings.Join(caps, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DescribeTools formats the tool capability description handed to the
// decision oracle.
func (t *Team) DescribeTools() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.tools) == 0 {
		return "(no tools registered)"
	}
	var b strings.Builder
	for _, tool := range t.tools {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
	}
	return b.String()
}

// Signature returns a canonical serialization of the team and tool roster
// with stable field ordering, used as the cache fingerprint component.
// Two teams with the same agents, descriptions, capabilities, and tools
// produce identical signatures regardless of registration order.
func (t *Team) Signature() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.agents))
	for name := range t.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(t.tools))
	for _, name := range names {
		caps := append([]string(nil), t.caps[name]...)
		sort.Strings(caps)
		parts = append(parts, fmt.Sprintf("agent:%s=%s[%s]",
			name, t.agents[name].Description(), strings.Join(caps, ",")))
	}

	toolNames := make([]string, 0, len(t.tools))
	for _, tool := range t.tools {
		toolNames = append(toolNames, fmt.Sprintf("tool:%s=%s", tool.Name, tool.Description))
	}
	sort.Strings(toolNames)
	parts = append(parts, toolNames...)

	return strings.Join(parts, "|")
}
