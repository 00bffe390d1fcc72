package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/internal/metrics"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 路由来源标记（指标用）
const (
	sourceCache    = "cache"
	sourceFastPath = "fast_path"
	sourceOracle   = "oracle"
)

// Router 把任务映射为规范化路由决策。
// 依赖通过构造函数显式注入，无进程级可变单例。
type Router struct {
	cache         *DecisionCache
	oracle        oracle.DecisionOracle
	trivial       Classifier
	timeSensitive Classifier
	collector     *metrics.Collector
	logger        *zap.Logger
	group         singleflight.Group
	nowFn         func() time.Time
}

// Option 配置 Router。
type Option func(*Router)

// WithMetrics 设置指标收集器。
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Router) { r.collector = c }
}

// WithTrivialClassifier 替换琐碎任务分类器。
func WithTrivialClassifier(c Classifier) Option {
	return func(r *Router) { r.trivial = c }
}

// WithTimeSensitiveClassifier 替换时效性任务分类器。
func WithTimeSensitiveClassifier(c Classifier) Option {
	return func(r *Router) { r.timeSensitive = c }
}

// New 创建 Router。cache 为 nil 时使用默认配置的本地缓存；
// decisionOracle 可以为 nil，此时非快速通道的任务路由会失败。
func New(cache *DecisionCache, decisionOracle oracle.DecisionOracle, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewDecisionCache(DefaultCacheConfig(), logger)
	}
	r := &Router{
		cache:         cache,
		oracle:        decisionOracle,
		trivial:       NewTrivialClassifier(nil),
		timeSensitive: NewTimeSensitiveClassifier(nil),
		logger:        logger.With(zap.String("component", "router")),
		nowFn:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache 返回路由器使用的决策缓存（便于调用方读取 Stats / Clear）。
func (r *Router) Cache() *DecisionCache { return r.cache }

// RouteOption 配置单次 Route 调用。
type RouteOption func(*routeOptions)

type routeOptions struct {
	skipCache bool
}

// WithSkipCache 跳过缓存读写。
func WithSkipCache() RouteOption {
	return func(o *routeOptions) { o.skipCache = true }
}

// Route 为任务产出路由决策。oracle 调用失败对本次 Route 是致命的，
// 由调用方自行决定重试策略；缓存与快速通道逻辑本身不报错。
func (r *Router) Route(ctx context.Context, task types.Task, team *agent.Team, opts ...RouteOption) (*types.RoutingDecision, error) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := r.nowFn()

	if task.IsZero() {
		return nil, types.NewError(types.ErrDecisionUnavailable, "task text is empty")
	}
	if team == nil || team.Size() == 0 {
		return nil, types.NewError(types.ErrEmptyAssignment, "no agents registered")
	}

	fingerprint := Fingerprint(task.Text, team.Signature())

	// 1. 缓存
	if !o.skipCache {
		if d, ok := r.cache.Get(ctx, fingerprint); ok {
			r.collector.RecordCacheHit()
			r.collector.RecordRoute(string(d.ExecutionMode), sourceCache, r.nowFn().Sub(start))
			r.logger.Debug("decision served from cache", zap.String("fingerprint", fingerprint))
			return d, nil
		}
		r.collector.RecordCacheMiss()
	}

	// 2. 琐碎任务快速通道
	if d := r.routeTrivial(task, team); d != nil {
		if !o.skipCache {
			r.cache.Set(ctx, fingerprint, d)
		}
		r.collector.RecordRoute(string(d.ExecutionMode), sourceFastPath, r.nowFn().Sub(start))
		return d, nil
	}

	// 3. 时效性任务快速通道
	timeSensitive := r.timeSensitive.Match(task)
	if timeSensitive {
		if d := r.routeTimeSensitive(task, team); d != nil {
			if !o.skipCache {
				r.cache.Set(ctx, fingerprint, d)
			}
			r.collector.RecordRoute(string(d.ExecutionMode), sourceFastPath, r.nowFn().Sub(start))
			return d, nil
		}
	}

	// 4. 外部决策 oracle
	d, err := r.routeOracle(ctx, task, team, timeSensitive, fingerprint, o.skipCache)
	if err != nil {
		return nil, err
	}
	r.collector.RecordRoute(string(d.ExecutionMode), sourceOracle, r.nowFn().Sub(start))
	return d, nil
}

// routeTrivial 为琐碎任务构造直接响应决策；不命中返回 nil。
func (r *Router) routeTrivial(task types.Task, team *agent.Team) *types.RoutingDecision {
	if !r.trivial.Match(task) {
		return nil
	}
	a, ok := team.FirstWithCapability(agent.CapDirectResponse)
	if !ok {
		return nil
	}
	r.logger.Debug("trivial task fast path", zap.String("agent", a.Name()))
	return &types.RoutingDecision{
		AssignedTo:    []string{a.Name()},
		ExecutionMode: types.ModeDelegated,
		Subtasks:      []string{task.Text},
		ToolPlan:      []string{},
		LatencyBudget: types.BudgetLow,
		Reasoning:     fmt.Sprintf("fast path: trivial task answered directly by %s, oracle bypassed", a.Name()),
	}
}

// routeTimeSensitive 为时效性任务构造强制决策：web 搜索工具进入
// tool_plan，研究型 agent 进入 assigned_to；任务声明的其他能力要求
// 也各分配一个 agent，多于一个 agent 时升级为 parallel。
// 缺少 web 搜索工具或研究型 agent 时返回 nil，转交 oracle。
func (r *Router) routeTimeSensitive(task types.Task, team *agent.Team) *types.RoutingDecision {
	tool, ok := team.WebSearchTool()
	if !ok {
		return nil
	}
	researcher, ok := team.FirstWithCapability(agent.CapResearch)
	if !ok {
		return nil
	}

	assigned := []string{researcher.Name()}
	for _, capability := range task.RequiredCapabilities {
		a, ok := team.FirstWithCapability(capability)
		if !ok || containsString(assigned, a.Name()) {
			continue
		}
		assigned = append(assigned, a.Name())
	}

	mode := types.ModeDelegated
	if len(assigned) > 1 {
		mode = types.ModeParallel
	}

	d := &types.RoutingDecision{
		AssignedTo:    assigned,
		ExecutionMode: mode,
		Subtasks:      []string{task.Text},
		ToolPlan:      []string{tool.Name},
		ToolGoals:     []string{"gather current information for: " + task.Text},
		LatencyBudget: types.BudgetLow,
		Reasoning: fmt.Sprintf("fast path: time-sensitive task, forcing %s via %s",
			tool.Name, researcher.Name()),
	}
	d.AlignSubtasks(task.Text)

	r.logger.Debug("time-sensitive task fast path",
		zap.String("tool", tool.Name),
		zap.Strings("assigned", assigned),
	)
	return d
}

// routeOracle 调用外部 oracle 并规范化结果。并发的相同 fingerprint
// 请求合并为一次 oracle 调用（skipCache 时不合并）。
func (r *Router) routeOracle(ctx context.Context, task types.Task, team *agent.Team, timeSensitive bool, fingerprint string, skipCache bool) (*types.RoutingDecision, error) {
	if r.oracle == nil {
		return nil, types.NewError(types.ErrDecisionUnavailable, "no decision oracle configured")
	}

	compute := func() (*types.RoutingDecision, error) {
		q := oracle.RouteQuery{
			Task:            task.Text,
			TeamDescription: team.DescribeAgents(),
			ToolDescription: team.DescribeTools(),
			Context:         r.buildContext(task, timeSensitive),
			CurrentDate:     r.nowFn().Format("2006-01-02"),
		}
		raw, err := r.oracle.Decide(ctx, q)
		if err != nil {
			return nil, types.NewError(types.ErrDecisionUnavailable, "oracle call failed").WithCause(err)
		}
		d := normalizeDecision(raw, task, team, r.logger)
		if len(d.AssignedTo) == 0 {
			return nil, types.NewError(types.ErrDecisionUnavailable, "oracle assigned no agents")
		}
		if !skipCache {
			r.cache.Set(ctx, fingerprint, d)
		}
		return d, nil
	}

	if skipCache {
		return compute()
	}

	v, err, _ := r.group.Do(fingerprint, func() (any, error) {
		return compute()
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.RoutingDecision).Clone(), nil
}

// buildContext 拼装 oracle 上下文：任务上下文 + 能力要求提示 + 时效性提示。
func (r *Router) buildContext(task types.Task, timeSensitive bool) string {
	parts := make([]string, 0, 3)
	if task.Context != "" {
		parts = append(parts, task.Context)
	}
	if len(task.RequiredCapabilities) > 0 {
		parts = append(parts, "Required capabilities: "+strings.Join(task.RequiredCapabilities, ", "))
	}
	if timeSensitive {
		parts = append(parts, "Note: the task appears time-sensitive; prefer agents and tools that can reach current information.")
	}
	return strings.Join(parts, "\n")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
