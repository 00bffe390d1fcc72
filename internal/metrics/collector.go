// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 编排核心的指标收集器
type Collector struct {
	// 路由指标
	routeDecisionsTotal *prometheus.CounterVec
	routeDuration       *prometheus.HistogramVec

	// 缓存指标
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Agent 执行指标
	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec

	// Handoff 指标
	handoffsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，并将指标注册到给定的 registerer。
// registerer 为 nil 时使用 prometheus.DefaultRegisterer。
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.routeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Routing decisions by execution mode and source (cache/fast_path/oracle).",
		},
		[]string{"mode", "source"},
	)

	c.routeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Route call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	c.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_hits_total",
			Help:      "Decision cache hits.",
		},
	)

	c.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_misses_total",
			Help:      "Decision cache misses.",
		},
	)

	c.agentExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Agent invocations by agent name and outcome.",
		},
		[]string{"agent", "outcome"},
	)

	c.agentExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent invocation latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	c.handoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Handoff packages created, by from/to agent.",
		},
		[]string{"from", "to"},
	)

	registerer.MustRegister(
		c.routeDecisionsTotal,
		c.routeDuration,
		c.cacheHits,
		c.cacheMisses,
		c.agentExecutionsTotal,
		c.agentExecutionDuration,
		c.handoffsTotal,
	)

	return c
}

// RecordRoute 记录一次路由决策。source 取值 cache / fast_path / oracle。
func (c *Collector) RecordRoute(mode, source string, duration time.Duration) {
	if c == nil {
		return
	}
	c.routeDecisionsTotal.WithLabelValues(mode, source).Inc()
	c.routeDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheHit 记录缓存命中。
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss 记录缓存未命中。
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}

// RecordAgentExecution 记录一次 agent 调用。
func (c *Collector) RecordAgentExecution(agent string, success bool, duration time.Duration) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	c.agentExecutionsTotal.WithLabelValues(agent, outcome).Inc()
	c.agentExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordHandoff 记录一次 handoff 包创建。
func (c *Collector) RecordHandoff(from, to string) {
	if c == nil {
		return
	}
	c.handoffsTotal.WithLabelValues(from, to).Inc()
}
