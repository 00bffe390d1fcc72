package executor

import (
	"context"

	"github.com/BaSui01/agentmesh/types"
)

// runDelegated hands the whole task to the single assigned agent. Any
// agent failure is fatal.
func (e *Executor) runDelegated(ctx context.Context, task types.Task, decision *types.RoutingDecision, tr *ExecutionTrace, events chan<- Event) (string, error) {
	name := decision.AssignedTo[0]
	a, ok := e.team.Get(name)
	if !ok {
		return "", types.NewError(types.ErrUnknownAgent, "assigned agent is not registered with the team").WithAgent(name)
	}

	output, err := e.invoke(ctx, a, task.Text, events)
	if err != nil {
		return "", agentError(name, err)
	}

	tr.addStep(name, output, e.previewLen)
	return output, nil
}
