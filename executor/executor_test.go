package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/agentmesh/agent"
	"github.com/BaSui01/agentmesh/handoff"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func echoAgent(name string) *agent.FuncAgent {
	return &agent.FuncAgent{
		AgentName: name,
		AgentDesc: name + " specialist",
		Fn: func(_ context.Context, input string) (string, error) {
			return fmt.Sprintf("%s: %s", name, input), nil
		},
	}
}

func failingAgent(name string, err error) *agent.FuncAgent {
	return &agent.FuncAgent{
		AgentName: name,
		AgentDesc: name + " specialist",
		Fn: func(context.Context, string) (string, error) {
			return "", err
		},
	}
}

func newTeam(t *testing.T, agents ...agent.Agent) *agent.Team {
	team := agent.NewTeam(zaptest.NewLogger(t))
	for _, a := range agents {
		team.Register(a)
	}
	return team
}

func decision(mode types.ExecutionMode, assigned ...string) *types.RoutingDecision {
	return &types.RoutingDecision{AssignedTo: assigned, ExecutionMode: mode}
}

func TestRun_Delegated(t *testing.T) {
	team := newTeam(t, echoAgent("helper"))
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("say hi"), decision(types.ModeDelegated, "helper"))
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, tr.State)
	assert.Equal(t, "helper: say hi", tr.FinalResult)
	require.Len(t, tr.Steps, 1)
	assert.Equal(t, "helper", tr.Steps[0].Agent)
	assert.False(t, tr.FinishedAt.Before(tr.StartedAt))
}

func TestRun_Delegated_AgentFailureIsFatal(t *testing.T) {
	team := newTeam(t, failingAgent("helper", errors.New("model unavailable")))
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("say hi"), decision(types.ModeDelegated, "helper"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAgentExecution))
	assert.Equal(t, StateFailed, tr.State)
	assert.Empty(t, tr.FinalResult)
}

func TestRun_Delegated_UnknownAgent(t *testing.T) {
	team := newTeam(t, echoAgent("helper"))
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("say hi"), decision(types.ModeDelegated, "stranger"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownAgent))
	assert.Equal(t, StateFailed, tr.State)
}

func TestRun_EmptyAssignment(t *testing.T) {
	exec := New(newTeam(t, echoAgent("helper")), zaptest.NewLogger(t))

	for _, mode := range []types.ExecutionMode{types.ModeDelegated, types.ModeParallel, types.ModeSequential} {
		_, err := exec.Run(context.Background(), types.NewTask("t"), decision(mode))
		require.Error(t, err, "mode %s", mode)
		assert.True(t, types.IsErrorCode(err, types.ErrEmptyAssignment))
	}

	_, err := exec.Run(context.Background(), types.NewTask("t"), nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrEmptyAssignment))
}

func TestRun_Parallel_PartialFailure(t *testing.T) {
	team := newTeam(t,
		echoAgent("alpha"),
		failingAgent("beta", errors.New("timeout")),
		echoAgent("gamma"),
	)
	exec := New(team, zaptest.NewLogger(t))

	d := decision(types.ModeParallel, "alpha", "beta", "gamma")
	d.Subtasks = []string{"part one", "part two", "part three"}

	tr, err := exec.Run(context.Background(), types.NewTask("big job"), d)
	require.NoError(t, err, "parallel tolerates individual failures")
	assert.Equal(t, StateCompleted, tr.State)

	// Output order follows assignment order regardless of completion order.
	alphaIdx := strings.Index(tr.FinalResult, "alpha: part one")
	betaIdx := strings.Index(tr.FinalResult, "[beta failed: timeout]")
	gammaIdx := strings.Index(tr.FinalResult, "gamma: part three")
	require.True(t, alphaIdx >= 0 && betaIdx >= 0 && gammaIdx >= 0, "result: %s", tr.FinalResult)
	assert.Less(t, alphaIdx, betaIdx)
	assert.Less(t, betaIdx, gammaIdx)

	require.Len(t, tr.Steps, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"},
		[]string{tr.Steps[0].Agent, tr.Steps[1].Agent, tr.Steps[2].Agent})
}

func TestRun_Parallel_NoSiblingCancellation(t *testing.T) {
	var slowFinished atomic.Bool
	slow := &agent.FuncAgent{
		AgentName: "slow",
		AgentDesc: "slow specialist",
		Fn: func(ctx context.Context, input string) (string, error) {
			select {
			case <-time.After(50 * time.Millisecond):
				slowFinished.Store(true)
				return "slow done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	}
	team := newTeam(t, failingAgent("fast", errors.New("boom")), slow)
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("t"), decision(types.ModeParallel, "fast", "slow"))
	require.NoError(t, err)
	assert.True(t, slowFinished.Load(), "a failing branch must not cancel its siblings")
	assert.Contains(t, tr.FinalResult, "slow done")
}

func TestRun_Parallel_UnknownAgentsSkipped(t *testing.T) {
	team := newTeam(t, echoAgent("alpha"))
	exec := New(team, zaptest.NewLogger(t))

	d := decision(types.ModeParallel, "ghost", "alpha")
	d.Subtasks = []string{"x", "y"}

	tr, err := exec.Run(context.Background(), types.NewTask("t"), d)
	require.NoError(t, err)
	require.Len(t, tr.Steps, 1)
	assert.Equal(t, "alpha", tr.Steps[0].Agent)
	assert.Equal(t, "alpha: y", tr.FinalResult)
}

func TestRun_Sequential_ThreadsOutput(t *testing.T) {
	team := newTeam(t, echoAgent("first"), echoAgent("second"))
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("start"), decision(types.ModeSequential, "first", "second"))
	require.NoError(t, err)
	assert.Equal(t, "second: first: start", tr.FinalResult)
	require.Len(t, tr.Steps, 2)
}

func TestRun_Sequential_FailureStopsChain(t *testing.T) {
	var thirdCalls atomic.Int32
	third := &agent.FuncAgent{
		AgentName: "third",
		AgentDesc: "third specialist",
		Fn: func(context.Context, string) (string, error) {
			thirdCalls.Add(1)
			return "never", nil
		},
	}
	team := newTeam(t,
		echoAgent("first"),
		failingAgent("second", errors.New("broke")),
		third,
	)
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("start"),
		decision(types.ModeSequential, "first", "second", "third"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAgentExecution))
	assert.Equal(t, StateFailed, tr.State)
	assert.Equal(t, int32(0), thirdCalls.Load(), "agents after the failure must never run")
	require.Len(t, tr.Steps, 1)
}

func TestRun_Sequential_UnknownAgentSkipped(t *testing.T) {
	team := newTeam(t, echoAgent("first"), echoAgent("last"))
	exec := New(team, zaptest.NewLogger(t))

	tr, err := exec.Run(context.Background(), types.NewTask("start"),
		decision(types.ModeSequential, "first", "ghost", "last"))
	require.NoError(t, err)
	assert.Equal(t, "last: first: start", tr.FinalResult)
	require.Len(t, tr.Steps, 2)
}

func TestStream_EventOrder(t *testing.T) {
	team := newTeam(t, echoAgent("helper"))
	exec := New(team, zaptest.NewLogger(t))

	var got []EventType
	var summary Event
	for ev := range exec.Stream(context.Background(), types.NewTask("say hi"), decision(types.ModeDelegated, "helper")) {
		got = append(got, ev.Type)
		if ev.Type == EventAgentSummary {
			summary = ev
		}
	}

	assert.Equal(t, []EventType{EventAgentStart, EventAgentCompleted, EventAgentSummary}, got)
	require.NotNil(t, summary.Trace)
	assert.Equal(t, "helper: say hi", summary.Content)
	assert.NoError(t, summary.Err)
}

func TestStream_ErrorEventsBeforeFailedSummary(t *testing.T) {
	team := newTeam(t, failingAgent("helper", errors.New("boom")))
	exec := New(team, zaptest.NewLogger(t))

	var got []EventType
	for ev := range exec.Stream(context.Background(), types.NewTask("t"), decision(types.ModeDelegated, "helper")) {
		got = append(got, ev.Type)
		if ev.Type == EventAgentSummary {
			assert.Error(t, ev.Err)
			assert.Equal(t, StateFailed, ev.Trace.State)
		}
	}
	assert.Equal(t, []EventType{EventAgentStart, EventAgentError, EventAgentSummary}, got)
}

// scriptedHandoffOracle approves handing off to a fixed next agent.
type scriptedHandoffOracle struct {
	next string
}

func (s *scriptedHandoffOracle) DecideHandoff(_ context.Context, q oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
	return &oracle.HandoffDecision{ShouldHandoff: true, NextAgent: s.next, Reason: "scripted"}, nil
}

func (s *scriptedHandoffOracle) BuildPackage(_ context.Context, q oracle.PackageQuery) (*oracle.PackageDraft, error) {
	return &oracle.PackageDraft{
		PackageText:     q.WorkCompleted,
		EstimatedEffort: "simple",
	}, nil
}

func TestRun_Sequential_HandoffReplacesInput(t *testing.T) {
	var writerInput string
	writer := &agent.FuncAgent{
		AgentName: "writer",
		AgentDesc: "writes reports",
		Fn: func(_ context.Context, input string) (string, error) {
			writerInput = input
			return "report done", nil
		},
	}
	team := newTeam(t, echoAgent("researcher"), writer)

	mgr := handoff.NewManager(&scriptedHandoffOracle{next: "writer"}, zaptest.NewLogger(t))
	exec := New(team, zaptest.NewLogger(t), WithHandoffManager(mgr))

	tr, err := exec.Run(context.Background(), types.NewTask("market report"),
		decision(types.ModeSequential, "researcher", "writer"))
	require.NoError(t, err)

	// The writer receives the formatted handoff block, not the raw output.
	assert.Contains(t, writerInput, "=== HANDOFF: researcher -> writer ===")
	assert.Contains(t, writerInput, "researcher: market report")
	require.Len(t, tr.Handoffs, 1)
	assert.Equal(t, "researcher", tr.Handoffs[0].FromAgent)
	assert.Equal(t, "writer", tr.Handoffs[0].ToAgent)
	assert.Equal(t, types.EffortSimple, tr.Handoffs[0].EstimatedEffort)
	assert.Equal(t, "report done", tr.FinalResult)
}

func TestRun_Sequential_HandoffMismatchPassesRawOutput(t *testing.T) {
	var reviewerInput string
	reviewer := &agent.FuncAgent{
		AgentName: "reviewer",
		AgentDesc: "reviews drafts",
		Fn: func(_ context.Context, input string) (string, error) {
			reviewerInput = input
			return "approved", nil
		},
	}
	team := newTeam(t, echoAgent("researcher"), reviewer, echoAgent("writer"))

	// Oracle recommends the writer, but the reviewer is next in the plan.
	mgr := handoff.NewManager(&scriptedHandoffOracle{next: "writer"}, zaptest.NewLogger(t))
	exec := New(team, zaptest.NewLogger(t), WithHandoffManager(mgr))

	tr, err := exec.Run(context.Background(), types.NewTask("task"),
		decision(types.ModeSequential, "researcher", "reviewer", "writer"))
	require.NoError(t, err)
	assert.Equal(t, "researcher: task", reviewerInput, "mismatched recommendation passes raw output")
	for _, h := range tr.Handoffs {
		assert.NotEqual(t, "researcher", h.FromAgent, "no package for the mismatched step")
	}
}

func TestRun_Sequential_NoManagerPassesRawOutput(t *testing.T) {
	var secondInput string
	second := &agent.FuncAgent{
		AgentName: "second",
		AgentDesc: "second specialist",
		Fn: func(_ context.Context, input string) (string, error) {
			secondInput = input
			return "done", nil
		},
	}
	team := newTeam(t, echoAgent("first"), second)
	exec := New(team, zaptest.NewLogger(t))

	_, err := exec.Run(context.Background(), types.NewTask("go"),
		decision(types.ModeSequential, "first", "second"))
	require.NoError(t, err)
	assert.Equal(t, "first: go", secondInput)
}

func TestTrace_PreviewTruncation(t *testing.T) {
	long := strings.Repeat("长", 50)
	verbose := &agent.FuncAgent{
		AgentName: "verbose",
		AgentDesc: "talks a lot",
		Fn: func(context.Context, string) (string, error) {
			return long, nil
		},
	}
	exec := New(newTeam(t, verbose), zaptest.NewLogger(t), WithPreviewLength(10))

	tr, err := exec.Run(context.Background(), types.NewTask("t"), decision(types.ModeDelegated, "verbose"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("长", 10)+"...", tr.Steps[0].OutputPreview)
	assert.Equal(t, long, tr.FinalResult, "only the trace preview is truncated")
}

func TestStream_AbandonedConsumerDoesNotLeak(t *testing.T) {
	// Enough parallel branches that the event count exceeds the channel
	// buffer, so an unread stream would block the producer on send.
	var agents []agent.Agent
	var names []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("worker%d", i)
		agents = append(agents, echoAgent(name))
		names = append(names, name)
	}
	team := newTeam(t, agents...)
	exec := New(team, zaptest.NewLogger(t))

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	events := exec.Stream(ctx, types.NewTask("fan out"), decision(types.ModeParallel, names...))
	<-events // read one event, then walk away
	cancel()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+1
	}, 2*time.Second, 10*time.Millisecond, "producer goroutine should exit after cancellation")
}

func TestExecute_StampsTraceIDForAgents(t *testing.T) {
	var seen atomic.Value
	capture := &agent.FuncAgent{
		AgentName: "helper",
		AgentDesc: "records its trace ID",
		Fn: func(ctx context.Context, input string) (string, error) {
			id, _ := types.TraceID(ctx)
			seen.Store(id)
			return "ok", nil
		},
	}
	team := newTeam(t, capture)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	exec := New(team, zaptest.NewLogger(t), WithTracer(tp.Tracer("test")))

	_, err := exec.Run(context.Background(), types.NewTask("say hi"), decision(types.ModeDelegated, "helper"))
	require.NoError(t, err)

	id, ok := seen.Load().(string)
	require.True(t, ok)
	assert.Len(t, id, 32, "agents should observe the run's trace ID")
}
