package executor

import (
	"time"
	"unicode/utf8"

	"github.com/BaSui01/agentmesh/handoff"
	"github.com/BaSui01/agentmesh/types"
	"github.com/google/uuid"
)

// RunState is the lifecycle state of one run:
// Pending -> Running -> {Completed, Failed}.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// StepRecord is the observability record of one agent invocation.
type StepRecord struct {
	Agent         string         `json:"agent"`
	OutputPreview string         `json:"output_preview"`
	Artifacts     map[string]any `json:"artifacts,omitempty"`
}

// ExecutionTrace records one run end to end. It is owned by the run
// that produces it and needs no synchronization.
type ExecutionTrace struct {
	RunID       string              `json:"run_id"`
	Task        string              `json:"task"`
	Mode        types.ExecutionMode `json:"execution_mode"`
	State       RunState            `json:"state"`
	Steps       []StepRecord        `json:"steps"`
	Handoffs    []*handoff.Package  `json:"handoffs,omitempty"`
	FinalResult string              `json:"final_result"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
}

func newTrace(task string, mode types.ExecutionMode, startedAt time.Time) *ExecutionTrace {
	return &ExecutionTrace{
		RunID:     uuid.NewString(),
		Task:      task,
		Mode:      mode,
		State:     StatePending,
		StartedAt: startedAt,
	}
}

func (t *ExecutionTrace) addStep(agent, output string, previewLen int) {
	t.Steps = append(t.Steps, StepRecord{
		Agent:         agent,
		OutputPreview: preview(output, previewLen),
	})
}

// preview truncates on a rune boundary so multi-byte output stays valid.
func preview(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
