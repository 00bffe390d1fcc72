package types

// ExecutionMode 执行拓扑。
type ExecutionMode string

const (
	// ModeDelegated 单 agent 直接执行
	ModeDelegated ExecutionMode = "delegated"
	// ModeSequential 顺序流水线，前一步输出作为后一步输入
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel 并行扇出/扇入
	ModeParallel ExecutionMode = "parallel"
)

// Valid 判断执行模式是否合法。
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeDelegated, ModeSequential, ModeParallel:
		return true
	}
	return false
}

// LatencyBudget 延迟预算。
type LatencyBudget string

const (
	BudgetLow    LatencyBudget = "low"
	BudgetMedium LatencyBudget = "medium"
	BudgetHigh   LatencyBudget = "high"
)

// Valid 判断延迟预算是否合法。
func (b LatencyBudget) Valid() bool {
	switch b {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return true
	}
	return false
}

// Effort 工作量评估，用于 handoff 包的 estimated_effort 字段。
type Effort string

const (
	EffortSimple   Effort = "simple"
	EffortModerate Effort = "moderate"
	EffortComplex  Effort = "complex"
)

// Valid 判断工作量评估是否合法。
func (e Effort) Valid() bool {
	switch e {
	case EffortSimple, EffortModerate, EffortComplex:
		return true
	}
	return false
}

// RoutingDecision 路由器对单个任务的规范化输出。
// 一旦产出（或从缓存命中）即不可变；AssignedTo 对已解析的决策永不为空。
type RoutingDecision struct {
	// AssignedTo 有序的 agent 名称列表
	AssignedTo []string `json:"assigned_to"`

	// ExecutionMode 执行拓扑
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Subtasks 有序子任务。parallel 模式下与 AssignedTo 按位置一一对应；
	// 其余模式作为整条链消费的单一列表。
	Subtasks []string `json:"subtasks,omitempty"`

	// ToolPlan 有序工具标识
	ToolPlan []string `json:"tool_plan,omitempty"`

	// ToolGoals 工具使用目标
	ToolGoals []string `json:"tool_goals,omitempty"`

	// LatencyBudget 延迟预算
	LatencyBudget LatencyBudget `json:"latency_budget"`

	// Reasoning 决策依据
	Reasoning string `json:"reasoning,omitempty"`
}

// AlignSubtasks 在 parallel 模式下将 Subtasks 与 AssignedTo 对齐：
// 截断多余项，缺失项回填 fallback（原始任务文本）。
// 其余模式不做处理。
func (d *RoutingDecision) AlignSubtasks(fallback string) {
	if d.ExecutionMode != ModeParallel {
		return
	}
	n := len(d.AssignedTo)
	if len(d.Subtasks) > n {
		d.Subtasks = d.Subtasks[:n]
	}
	for len(d.Subtasks) < n {
		d.Subtasks = append(d.Subtasks, fallback)
	}
}

// Clone 返回决策的深拷贝，缓存命中时返回副本以保证不可变性。
func (d *RoutingDecision) Clone() *RoutingDecision {
	if d == nil {
		return nil
	}
	out := &RoutingDecision{
		ExecutionMode: d.ExecutionMode,
		LatencyBudget: d.LatencyBudget,
		Reasoning:     d.Reasoning,
	}
	out.AssignedTo = append([]string(nil), d.AssignedTo...)
	out.Subtasks = append([]string(nil), d.Subtasks...)
	out.ToolPlan = append([]string(nil), d.ToolPlan...)
	out.ToolGoals = append([]string(nil), d.ToolGoals...)
	return out
}
