package router

import (
	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
)

// normalizeDecision 把 oracle 的松散输出规范化为 RoutingDecision。
// 规范化是防御性的：缺失字段回填默认值而非报错。
//   - assigned_to 为空 → 回填团队首个 agent（保证决策永不为空）
//   - execution_mode 非法 → delegated
//   - latency_budget 非法 → medium
//   - parallel 模式下子任务与 agent 一一对齐，缺失项回填任务文本
func normalizeDecision(raw *oracle.RawDecision, task types.Task, team *agent.Team, logger *zap.Logger) *types.RoutingDecision {
	d := &types.RoutingDecision{
		AssignedTo:    append([]string(nil), raw.AssignedTo...),
		ExecutionMode: types.ExecutionMode(raw.ExecutionMode),
		Subtasks:      append([]string(nil), raw.Subtasks...),
		ToolPlan:      append([]string(nil), raw.ToolPlan...),
		ToolGoals:     append([]string(nil), raw.ToolGoals...),
		LatencyBudget: types.LatencyBudget(raw.LatencyBudget),
		Reasoning:     raw.Reasoning,
	}

	if len(d.AssignedTo) == 0 {
		names := team.Names()
		if len(names) > 0 {
			d.AssignedTo = []string{names[0]}
			logger.Warn("oracle assigned no agents, falling back to first registered",
				zap.String("agent", names[0]),
			)
		}
	}

	if !d.ExecutionMode.Valid() {
		d.ExecutionMode = types.ModeDelegated
	}
	if len(d.AssignedTo) == 1 && d.ExecutionMode == types.ModeParallel {
		d.ExecutionMode = types.ModeDelegated
	}
	if !d.LatencyBudget.Valid() {
		d.LatencyBudget = types.BudgetMedium
	}

	d.AlignSubtasks(task.Text)
	return d
}
