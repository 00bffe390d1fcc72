package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentmesh/internal/metrics"
	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
)

// fallbackReason is used when the packaging oracle is unreachable and the
// package is assembled best-effort from what the executor already knows.
const fallbackReason = "work transferred to the next agent in the planned chain"

// Manager evaluates and packages handoffs for one run. History is
// per-run, append-only, and owned by the executor driving the run.
type Manager struct {
	oracle    oracle.HandoffOracle
	collector *metrics.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	history []*Package

	nowFn func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) ManagerOption {
	return func(m *Manager) { m.collector = c }
}

// NewManager creates a handoff manager. handoffOracle may be nil, in which
// case evaluation always answers "no handoff" and packages are built from
// the fallback path.
func NewManager(handoffOracle oracle.HandoffOracle, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		oracle: handoffOracle,
		logger: logger.With(zap.String("component", "handoff_manager")),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EvaluateHandoff asks the oracle whether work should move from
// currentAgent to one of the candidates. It returns the recommended next
// agent name, or ok=false when no handoff is warranted. The oracle's
// should_handoff flag is the single source of truth; an unreachable oracle
// or malformed reply fails open to no-handoff.
func (m *Manager) EvaluateHandoff(ctx context.Context, currentAgent, workCompleted, remainingWork string, candidates []oracle.Candidate) (string, bool) {
	if m.oracle == nil || len(candidates) == 0 {
		return "", false
	}

	decision, err := m.oracle.DecideHandoff(ctx, oracle.HandoffQuery{
		CurrentAgent:  currentAgent,
		WorkCompleted: workCompleted,
		RemainingWork: remainingWork,
		Candidates:    candidates,
	})
	if err != nil {
		m.logger.Warn("handoff evaluation failed, passing work through",
			zap.String("agent", currentAgent),
			zap.Error(err),
		)
		return "", false
	}
	if !decision.ShouldHandoff || decision.NextAgent == "" {
		return "", false
	}
	if decision.NextAgent == currentAgent {
		m.logger.Warn("oracle recommended handing off to the current agent, ignoring",
			zap.String("agent", currentAgent),
		)
		return "", false
	}
	for _, c := range candidates {
		if c.Name == decision.NextAgent {
			m.logger.Info("handoff recommended",
				zap.String("from", currentAgent),
				zap.String("to", decision.NextAgent),
				zap.String("reason", decision.Reason),
			)
			return decision.NextAgent, true
		}
	}

	m.logger.Warn("oracle recommended an agent outside the candidate set, ignoring",
		zap.String("recommended", decision.NextAgent),
	)
	return "", false
}

// CreatePackage builds a handoff package from fromAgent to toAgent and
// appends it to the run's history. The packaging oracle enriches the
// package; when it is unreachable or answers garbage the package falls
// back to moderate effort, an empty checklist, and a generic reason
// rather than failing the run.
func (m *Manager) CreatePackage(ctx context.Context, fromAgent, toAgent, workCompleted string, artifacts map[string]any, objectives []string, task, reason string) (*Package, error) {
	if fromAgent == toAgent {
		return nil, types.NewError(types.ErrInvalidHandoff, "handoff to the same agent").WithAgent(fromAgent)
	}

	pkg := &Package{
		FromAgent:           fromAgent,
		ToAgent:             toAgent,
		Task:                task,
		WorkCompleted:       workCompleted,
		Artifacts:           artifacts,
		RemainingObjectives: append([]string(nil), objectives...),
		EstimatedEffort:     types.EffortModerate,
		QualityChecklist:    []string{},
		HandoffReason:       reason,
		CreatedAt:           m.nowFn(),
	}

	if draft := m.draftPackage(ctx, fromAgent, toAgent, workCompleted, artifacts, objectives, task, reason); draft != nil {
		if effort := types.Effort(draft.EstimatedEffort); effort.Valid() {
			pkg.EstimatedEffort = effort
		}
		pkg.SuccessCriteria = draft.SuccessCriteria
		pkg.QualityChecklist = draft.QualityChecklist
		pkg.ToolRequirements = draft.ToolRequirements
		if draft.PackageText != "" {
			pkg.WorkCompleted = draft.PackageText
		}
	}
	if pkg.HandoffReason == "" {
		pkg.HandoffReason = fallbackReason
	}

	m.mu.Lock()
	m.history = append(m.history, pkg)
	m.mu.Unlock()

	m.collector.RecordHandoff(fromAgent, toAgent)
	m.logger.Info("handoff package created",
		zap.String("from", fromAgent),
		zap.String("to", toAgent),
		zap.String("effort", string(pkg.EstimatedEffort)),
	)
	return pkg, nil
}

// draftPackage consults the packaging oracle; nil means fall back.
func (m *Manager) draftPackage(ctx context.Context, fromAgent, toAgent, workCompleted string, artifacts map[string]any, objectives []string, task, reason string) *oracle.PackageDraft {
	if m.oracle == nil {
		return nil
	}
	draft, err := m.oracle.BuildPackage(ctx, oracle.PackageQuery{
		FromAgent:     fromAgent,
		ToAgent:       toAgent,
		WorkCompleted: workCompleted,
		Artifacts:     artifacts,
		Objectives:    objectives,
		Task:          task,
		Reason:        reason,
	})
	if err != nil {
		m.logger.Warn("package drafting failed, using best-effort package", zap.Error(err))
		return nil
	}
	return draft
}

// History returns the packages created so far, in creation order.
func (m *Manager) History() []*Package {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Package(nil), m.history...)
}

// Reset drops the history, for reuse across runs in tests.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}
