// Package executor runs a resolved routing decision against a team of
// agents. Three strategies cover the supported topologies: delegated
// (single agent), parallel (fan-out/fan-in with partial failure
// tolerance), and sequential (a pipeline that threads each output into
// the next step and may negotiate structured handoffs between steps).
//
// Every run emits an ordered, finite stream of progress events and ends
// with a terminal agent.summary event carrying the execution trace.
// Callers that do not care about streaming use Run, which drains the
// stream and returns the trace.
package executor
