package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
)

type chainStep struct {
	name  string
	agent agent.Agent
}

// runSequential runs the assigned agents strictly one after another,
// threading each output into the next step. Unknown agent names are
// skipped with a warning; any agent failure aborts the whole chain.
// Between steps the handoff manager, when present, may replace the raw
// output with a formatted handoff package.
func (e *Executor) runSequential(ctx context.Context, task types.Task, decision *types.RoutingDecision, tr *ExecutionTrace, events chan<- Event) (string, error) {
	chain := make([]chainStep, 0, len(decision.AssignedTo))
	for _, name := range decision.AssignedTo {
		a, ok := e.team.Get(name)
		if !ok {
			e.logger.Warn("skipping unknown agent in sequential chain",
				zap.String("agent", name),
			)
			continue
		}
		chain = append(chain, chainStep{name: name, agent: a})
	}
	if len(chain) == 0 {
		return "", types.NewError(types.ErrEmptyAssignment, "no assigned agent is registered with the team")
	}

	input := task.Text
	var result string
	for i, step := range chain {
		output, err := e.invoke(ctx, step.agent, input, events)
		if err != nil {
			return "", agentError(step.name, err)
		}
		tr.addStep(step.name, output, e.previewLen)
		result = output

		if i == len(chain)-1 {
			break
		}
		input = e.nextInput(ctx, task, decision, tr, chain, i, output)
	}
	return result, nil
}

// nextInput decides what the next chain step receives. The default is
// the raw previous output; when the handoff oracle recommends handing
// off to exactly the next planned agent, a package is created and its
// formatted text becomes the input instead.
func (e *Executor) nextInput(ctx context.Context, task types.Task, decision *types.RoutingDecision, tr *ExecutionTrace, chain []chainStep, i int, output string) string {
	if e.handoffs == nil {
		return output
	}

	current := chain[i]
	rest := chain[i+1:]
	candidates := make([]oracle.Candidate, 0, len(rest))
	names := make([]string, 0, len(rest))
	for _, step := range rest {
		candidates = append(candidates, oracle.Candidate{
			Name:        step.name,
			Description: step.agent.Description(),
		})
		names = append(names, step.name)
	}

	remaining := fmt.Sprintf("remaining agents in the chain: %s", strings.Join(names, " -> "))
	if len(decision.Subtasks) > 0 {
		remaining += "; planned subtasks: " + strings.Join(decision.Subtasks, "; ")
	}

	next, ok := e.handoffs.EvaluateHandoff(ctx, current.name, output, remaining, candidates)
	if !ok {
		return output
	}
	if next != chain[i+1].name {
		// The oracle wants to jump ahead of the plan. The chain order
		// stays authoritative, so pass the raw output through.
		e.logger.Debug("handoff recommendation does not match the next planned agent",
			zap.String("recommended", next),
			zap.String("planned", chain[i+1].name),
		)
		return output
	}

	pkg, err := e.handoffs.CreatePackage(ctx, current.name, next, output, nil, decision.Subtasks, task.Text, "")
	if err != nil {
		e.logger.Warn("handoff package creation failed, passing raw output",
			zap.String("from", current.name),
			zap.String("to", next),
			zap.Error(err),
		)
		return output
	}
	tr.Handoffs = append(tr.Handoffs, pkg)
	return pkg.Format()
}
