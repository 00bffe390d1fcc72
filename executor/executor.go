package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/handoff"
	"github.com/BaSui01/agentmesh/internal/metrics"
	"github.com/BaSui01/agentmesh/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPreviewLength = 200
	eventBuffer          = 16
)

// Executor runs routing decisions against a team. It is safe for
// concurrent use: each run owns its trace and event channel, and the
// handoff manager guards its own history.
type Executor struct {
	team       *agent.Team
	handoffs   *handoff.Manager
	collector  *metrics.Collector
	tracer     oteltrace.Tracer
	logger     *zap.Logger
	previewLen int
	nowFn      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithHandoffManager enables handoff negotiation between sequential
// steps. Without a manager the previous output passes through raw.
func WithHandoffManager(m *handoff.Manager) Option {
	return func(e *Executor) { e.handoffs = m }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) { e.collector = c }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t oteltrace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithPreviewLength caps the per-step output preview kept in the trace.
func WithPreviewLength(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.previewLen = n
		}
	}
}

// New creates an Executor over the given team.
func New(team *agent.Team, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		team:       team,
		tracer:     otel.Tracer("agentmesh/executor"),
		logger:     logger.With(zap.String("component", "executor")),
		previewLen: defaultPreviewLength,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stream starts the run and returns its event channel. The channel
// carries agent.start / agent.completed / agent.error events as the run
// progresses and closes after the terminal agent.summary event. A caller
// that stops reading should cancel ctx; undelivered events are dropped
// and the channel still closes.
func (e *Executor) Stream(ctx context.Context, task types.Task, decision *types.RoutingDecision) <-chan Event {
	events := make(chan Event, eventBuffer)
	go e.execute(ctx, task, decision, events)
	return events
}

// Run drains the event stream and returns the finished trace. The error
// is the run's fatal error, if any; the trace is returned in both cases.
func (e *Executor) Run(ctx context.Context, task types.Task, decision *types.RoutingDecision) (*ExecutionTrace, error) {
	var summary Event
	for ev := range e.Stream(ctx, task, decision) {
		if ev.Type == EventAgentSummary {
			summary = ev
		}
	}
	return summary.Trace, summary.Err
}

func (e *Executor) execute(ctx context.Context, task types.Task, decision *types.RoutingDecision, events chan<- Event) {
	defer close(events)

	mode := types.ModeDelegated
	if decision != nil {
		mode = decision.ExecutionMode
	}
	tr := newTrace(task.Text, mode, e.nowFn())
	ctx = types.WithRunID(ctx, tr.RunID)

	ctx, span := e.tracer.Start(ctx, "executor.run", oteltrace.WithAttributes(
		attribute.String("run_id", tr.RunID),
		attribute.String("execution_mode", string(mode)),
	))
	defer span.End()

	// Downstream provider requests inherit this run's trace ID.
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = types.WithTraceID(ctx, sc.TraceID().String())
	}

	tr.State = StateRunning
	e.logger.Info("run started",
		zap.String("run_id", tr.RunID),
		zap.String("mode", string(mode)),
	)

	result, err := e.dispatch(ctx, task, decision, tr, events)
	tr.FinishedAt = e.nowFn()

	if err != nil {
		tr.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("run failed", zap.String("run_id", tr.RunID), zap.Error(err))
		e.emit(ctx, events, Event{Type: EventAgentSummary, Err: err, Trace: tr})
		return
	}

	tr.State = StateCompleted
	tr.FinalResult = result
	e.logger.Info("run completed",
		zap.String("run_id", tr.RunID),
		zap.Int("steps", len(tr.Steps)),
		zap.Int("handoffs", len(tr.Handoffs)),
	)
	e.emit(ctx, events, Event{Type: EventAgentSummary, Content: result, Trace: tr})
}

func (e *Executor) dispatch(ctx context.Context, task types.Task, decision *types.RoutingDecision, tr *ExecutionTrace, events chan<- Event) (string, error) {
	if decision == nil || len(decision.AssignedTo) == 0 {
		return "", types.NewError(types.ErrEmptyAssignment, "decision assigns no agents")
	}
	switch decision.ExecutionMode {
	case types.ModeParallel:
		return e.runParallel(ctx, task, decision, tr, events)
	case types.ModeSequential:
		return e.runSequential(ctx, task, decision, tr, events)
	default:
		return e.runDelegated(ctx, task, decision, tr, events)
	}
}

// invoke calls one agent and emits its start/completed/error events.
// The returned error is the agent's raw error; callers decide whether
// it is fatal for their strategy.
func (e *Executor) invoke(ctx context.Context, a agent.Agent, input string, events chan<- Event) (string, error) {
	name := a.Name()
	ctx, span := e.tracer.Start(ctx, "agent.respond", oteltrace.WithAttributes(
		attribute.String("agent", name),
	))
	defer span.End()

	e.emit(ctx, events, Event{Type: EventAgentStart, Agent: name})

	start := e.nowFn()
	output, err := a.Respond(ctx, input)
	elapsed := e.nowFn().Sub(start)
	e.collector.RecordAgentExecution(name, err == nil, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("agent execution failed",
			zap.String("agent", name),
			zap.Error(err),
		)
		e.emit(ctx, events, Event{Type: EventAgentError, Agent: name, Err: err})
		return "", err
	}

	e.emit(ctx, events, Event{Type: EventAgentCompleted, Agent: name, Content: output})
	return output, nil
}

// emit delivers an event unless the run's context is cancelled. Dropping
// on cancellation keeps an abandoned Stream consumer from pinning the
// producer goroutine on a full channel.
func (e *Executor) emit(ctx context.Context, events chan<- Event, ev Event) {
	ev.Timestamp = e.nowFn()
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func agentError(name string, cause error) error {
	return types.NewError(types.ErrAgentExecution, fmt.Sprintf("agent %q failed", name)).
		WithAgent(name).
		WithCause(cause)
}
