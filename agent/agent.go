package agent

import "context"

// Agent is the minimal contract shared by all specialists: a unique name,
// a capability description, and the ability to respond to a text input.
// No side-channel state is assumed between calls.
type Agent interface {
	// Name returns the agent's unique identifier.
	Name() string
	// Description returns a human-readable capability description.
	Description() string
	// Respond runs the agent on the given input and returns its reply.
	Respond(ctx context.Context, input string) (string, error)
}

// Capability tags understood by the router's fast paths.
const (
	// CapDirectResponse marks an agent able to answer trivial requests
	// (greetings, acknowledgments) without tools or delegation.
	CapDirectResponse = "direct_response"
	// CapResearch marks an agent able to drive web-search style tools.
	CapResearch = "research"
)

// Tool describes a callable tool by name only; implementations live outside
// this module. The router needs presence and identity, nothing more.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FuncAgent adapts a plain function into an Agent. Useful for tests and
// for wrapping externally managed capabilities.
type FuncAgent struct {
	AgentName string
	AgentDesc string
	Fn        func(ctx context.Context, input string) (string, error)
}

func (a *FuncAgent) Name() string        { return a.AgentName }
func (a *FuncAgent) Description() string { return a.AgentDesc }

func (a *FuncAgent) Respond(ctx context.Context, input string) (string, error) {
	return a.Fn(ctx, input)
}
