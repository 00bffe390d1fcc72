package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
)

type parallelBranch struct {
	name    string
	subtask string
	agent   agent.Agent
}

// runParallel fans the subtasks out to their assigned agents and waits
// for every branch regardless of individual failures. A failing branch
// contributes an inline placeholder instead of aborting the run, and
// the synthesized result preserves the original assignment order no
// matter which branch finishes first.
func (e *Executor) runParallel(ctx context.Context, task types.Task, decision *types.RoutingDecision, tr *ExecutionTrace, events chan<- Event) (string, error) {
	branches := make([]parallelBranch, 0, len(decision.AssignedTo))
	for i, name := range decision.AssignedTo {
		a, ok := e.team.Get(name)
		if !ok {
			e.logger.Warn("skipping unknown agent in parallel assignment",
				zap.String("agent", name),
			)
			continue
		}
		subtask := task.Text
		if i < len(decision.Subtasks) && decision.Subtasks[i] != "" {
			subtask = decision.Subtasks[i]
		}
		branches = append(branches, parallelBranch{name: name, subtask: subtask, agent: a})
	}
	if len(branches) == 0 {
		return "", types.NewError(types.ErrEmptyAssignment, "no assigned agent is registered with the team")
	}

	// One slot per branch keeps output order deterministic. Siblings
	// are never cancelled on failure.
	results := make([]string, len(branches))
	var wg sync.WaitGroup
	for i, br := range branches {
		wg.Add(1)
		go func(i int, br parallelBranch) {
			defer wg.Done()
			output, err := e.invoke(ctx, br.agent, br.subtask, events)
			if err != nil {
				results[i] = fmt.Sprintf("[%s failed: %v]", br.name, err)
				return
			}
			results[i] = output
		}(i, br)
	}
	wg.Wait()

	var b strings.Builder
	for i, br := range branches {
		tr.addStep(br.name, results[i], e.previewLen)
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n%s", br.name, results[i])
	}
	return b.String(), nil
}
