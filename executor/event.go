package executor

import "time"

// EventType identifies a progress event emitted during a run.
type EventType string

const (
	// EventAgentStart fires right before an agent invocation begins.
	EventAgentStart EventType = "agent.start"
	// EventAgentCompleted fires when an agent invocation returns output.
	EventAgentCompleted EventType = "agent.completed"
	// EventAgentError fires when an agent invocation fails. In the
	// parallel strategy this is non-fatal; elsewhere it precedes a
	// failed summary.
	EventAgentError EventType = "agent.error"
	// EventAgentSummary is the terminal event of every run. It carries
	// the final synthesized result, the execution trace, and the fatal
	// error if the run failed. The event channel closes after it.
	EventAgentSummary EventType = "agent.summary"
)

// Event is one entry of the progress stream. The stream is finite and
// single-pass: once drained it cannot be restarted.
type Event struct {
	Type      EventType
	Agent     string
	Content   string
	Err       error
	Trace     *ExecutionTrace // only set on agent.summary
	Timestamp time.Time
}
