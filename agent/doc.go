// Package agent defines the agent contract consumed by the router and the
// executor: a named specialist capability backed by a call to an external
// inference service, plus the Team registry that describes the fleet
// (agents, capabilities, tools) to the decision oracle.
package agent
