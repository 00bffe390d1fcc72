/*
Package types 提供 agentmesh 的全局共享类型定义。

# 概述

types 是模块最底层的公共包，不依赖任何内部包，为 agent、router、handoff、
executor 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - Task              调用方提交的工作单元（文本 + 可选能力要求 + 上下文）
  - RoutingDecision   路由器输出的规范化路由决策
  - ExecutionMode     执行拓扑（delegated / sequential / parallel）
  - LatencyBudget     延迟预算（low / medium / high）
  - Effort            工作量评估（simple / moderate / complex）
  - Error / ErrorCode 结构化错误体系，含 Agent 标记与 Retryable 标记

# 主要能力

  - Context 传播：WithRunID / RunID、WithTraceID / TraceID
  - 错误工具链：IsErrorCode / GetErrorCode / IsRetryable
  - 决策对齐：RoutingDecision.AlignSubtasks（parallel 模式下子任务与
    agent 一一对应，缺失项回填原始任务文本）
*/
package types
