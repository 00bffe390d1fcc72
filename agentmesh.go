// Package agentmesh provides a top-level convenience entry point that wires
// a team, router, and executor together from one configuration.
//
// Usage:
//
//	import "github.com/BaSui01/agentmesh"
//
//	mesh, err := agentmesh.New(agentmesh.WithProvider(myProvider))
//	mesh.Team.Register(helper, agent.CapDirectResponse)
//	trace, err := mesh.Process(ctx, types.NewTask("latest AI news"))
//
// Every dependency can be swapped: custom oracles, a shared Redis client for
// the decision cache L2, a Prometheus registerer, or a pre-built logger.
package agentmesh

import (
	"context"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/config"
	"github.com/BaSui01/agentmesh/executor"
	"github.com/BaSui01/agentmesh/handoff"
	"github.com/BaSui01/agentmesh/internal/metrics"
	"github.com/BaSui01/agentmesh/internal/telemetry"
	"github.com/BaSui01/agentmesh/llm"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/router"
	"github.com/BaSui01/agentmesh/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// Mesh bundles the routing and execution pipeline over one team.
type Mesh struct {
	Team     *agent.Team
	Router   *router.Router
	Executor *executor.Executor

	telemetry *telemetry.Provider
	logger    *zap.Logger
}

// Option configures the mesh created by [New].
type Option func(*options)

type options struct {
	cfg            *config.Config
	logger         *zap.Logger
	provider       llm.Provider
	decisionOracle oracle.DecisionOracle
	handoffOracle  oracle.HandoffOracle
	registerer     prometheus.Registerer
	redisClient    *redis.Client
}

// WithConfig supplies a loaded configuration. Defaults to
// [config.DefaultConfig] when omitted.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a pre-built zap logger. When omitted, a logger is built
// from the Log section of the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProvider backs both the decision and handoff oracles with an LLM
// provider. Ignored for a concern when a dedicated oracle is also given.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithDecisionOracle sets a custom routing oracle.
func WithDecisionOracle(d oracle.DecisionOracle) Option {
	return func(o *options) { o.decisionOracle = d }
}

// WithHandoffOracle sets a custom handoff oracle.
func WithHandoffOracle(h oracle.HandoffOracle) Option {
	return func(o *options) { o.handoffOracle = h }
}

// WithMetrics registers the mesh's Prometheus collectors with the given
// registerer. Without it no metrics are recorded.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *options) { o.registerer = registerer }
}

// WithRedis shares a Redis client with the decision cache as its L2 tier.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redisClient = client }
}

// New wires a Mesh from the given options. A mesh without any oracle still
// serves fast-path routing; oracle-dependent routes fail with
// DECISION_UNAVAILABLE.
func New(opts ...Option) (*Mesh, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}

	decisionOracle := o.decisionOracle
	handoffOracle := o.handoffOracle
	if o.provider != nil && (decisionOracle == nil || handoffOracle == nil) {
		llmOracle, err := oracle.NewLLMOracle(o.provider, logger,
			oracle.WithModel(cfg.Oracle.Model),
			oracle.WithRateLimit(rate.Limit(cfg.Oracle.RateLimit), cfg.Oracle.RateBurst),
		)
		if err != nil {
			return nil, err
		}
		if decisionOracle == nil {
			decisionOracle = llmOracle
		}
		if handoffOracle == nil {
			handoffOracle = llmOracle
		}
	}

	var collector *metrics.Collector
	if o.registerer != nil {
		collector = metrics.NewCollector("agentmesh", o.registerer, logger)
	}

	redisClient := o.redisClient
	if redisClient == nil && cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	}
	cacheOpts := []router.CacheOption{}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, router.WithRedis(redisClient, cfg.Redis.TTL))
	}
	cache := router.NewDecisionCache(router.CacheConfig{
		TTL:        cfg.Router.CacheTTL,
		MaxEntries: cfg.Router.CacheMaxEntries,
	}, logger, cacheOpts...)

	routerOpts := []router.Option{router.WithMetrics(collector)}
	if len(cfg.Router.TrivialPhrases) > 0 {
		routerOpts = append(routerOpts,
			router.WithTrivialClassifier(router.NewTrivialClassifier(cfg.Router.TrivialPhrases)))
	}
	if len(cfg.Router.TimeSensitiveKeywords) > 0 {
		routerOpts = append(routerOpts,
			router.WithTimeSensitiveClassifier(router.NewTimeSensitiveClassifier(cfg.Router.TimeSensitiveKeywords)))
	}

	team := agent.NewTeam(logger)

	execOpts := []executor.Option{
		executor.WithMetrics(collector),
		executor.WithPreviewLength(cfg.Executor.PreviewLength),
	}
	if cfg.Executor.EnableHandoff {
		execOpts = append(execOpts, executor.WithHandoffManager(
			handoff.NewManager(handoffOracle, logger, handoff.WithMetrics(collector))))
	}

	return &Mesh{
		Team:      team,
		Router:    router.New(cache, decisionOracle, logger, routerOpts...),
		Executor:  executor.New(team, logger, execOpts...),
		telemetry: tel,
		logger:    logger.With(zap.String("component", "mesh")),
	}, nil
}

// Shutdown flushes buffered telemetry spans and releases the exporter.
// It is a no-op when telemetry is disabled.
func (m *Mesh) Shutdown(ctx context.Context) error {
	return m.telemetry.Shutdown(ctx)
}

// Process routes the task and runs the resulting decision, returning the
// finished execution trace.
func (m *Mesh) Process(ctx context.Context, task types.Task) (*executor.ExecutionTrace, error) {
	decision, err := m.Router.Route(ctx, task, m.Team)
	if err != nil {
		return nil, err
	}
	return m.Executor.Run(ctx, task, decision)
}

// Stream routes the task and returns the run's live event stream. The
// routing error, if any, is delivered as a failed agent.summary event so
// callers consume a single channel either way.
func (m *Mesh) Stream(ctx context.Context, task types.Task) <-chan executor.Event {
	decision, err := m.Router.Route(ctx, task, m.Team)
	if err != nil {
		events := make(chan executor.Event, 1)
		events <- executor.Event{Type: executor.EventAgentSummary, Err: err}
		close(events)
		return events
	}
	return m.Executor.Stream(ctx, task, decision)
}

// NewLogger builds a zap logger from the Log configuration section.
func NewLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	var buildOpts []zap.Option
	if cfg.EnableCaller {
		buildOpts = append(buildOpts, zap.AddCaller())
	}

	logger, err := zapConfig.Build(buildOpts...)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
