package handoff

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/agentmesh/oracle"
	"github.com/BaSui01/agentmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockHandoffOracle scripts handoff decisions and package drafts.
type mockHandoffOracle struct {
	decideFn func(q oracle.HandoffQuery) (*oracle.HandoffDecision, error)
	buildFn  func(q oracle.PackageQuery) (*oracle.PackageDraft, error)
}

func (m *mockHandoffOracle) DecideHandoff(_ context.Context, q oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
	if m.decideFn == nil {
		return &oracle.HandoffDecision{}, nil
	}
	return m.decideFn(q)
}

func (m *mockHandoffOracle) BuildPackage(_ context.Context, q oracle.PackageQuery) (*oracle.PackageDraft, error) {
	if m.buildFn == nil {
		return nil, errors.New("no draft scripted")
	}
	return m.buildFn(q)
}

func candidates(names ...string) []oracle.Candidate {
	out := make([]oracle.Candidate, 0, len(names))
	for _, n := range names {
		out = append(out, oracle.Candidate{Name: n})
	}
	return out
}

func TestEvaluateHandoff_Recommended(t *testing.T) {
	mock := &mockHandoffOracle{
		decideFn: func(q oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
			assert.Equal(t, "researcher", q.CurrentAgent)
			return &oracle.HandoffDecision{ShouldHandoff: true, NextAgent: "writer", Reason: "research done"}, nil
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	next, ok := m.EvaluateHandoff(context.Background(), "researcher", "found sources", "write report", candidates("writer", "reviewer"))
	assert.True(t, ok)
	assert.Equal(t, "writer", next)
}

func TestEvaluateHandoff_OracleErrorFailsOpen(t *testing.T) {
	mock := &mockHandoffOracle{
		decideFn: func(oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
			return nil, errors.New("oracle down")
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	_, ok := m.EvaluateHandoff(context.Background(), "researcher", "w", "r", candidates("writer"))
	assert.False(t, ok, "oracle failure must not block the run")
}

func TestEvaluateHandoff_ShouldHandoffFlagIsAuthoritative(t *testing.T) {
	// Oracle names an agent but says no handoff. The flag wins.
	mock := &mockHandoffOracle{
		decideFn: func(oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
			return &oracle.HandoffDecision{ShouldHandoff: false, NextAgent: "writer"}, nil
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	_, ok := m.EvaluateHandoff(context.Background(), "researcher", "w", "r", candidates("writer"))
	assert.False(t, ok)
}

func TestEvaluateHandoff_RejectsUnknownAndSelf(t *testing.T) {
	tests := []struct {
		name string
		next string
	}{
		{"outside candidate set", "stranger"},
		{"current agent", "researcher"},
		{"empty name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHandoffOracle{
				decideFn: func(oracle.HandoffQuery) (*oracle.HandoffDecision, error) {
					return &oracle.HandoffDecision{ShouldHandoff: true, NextAgent: tt.next}, nil
				},
			}
			m := NewManager(mock, zaptest.NewLogger(t))
			_, ok := m.EvaluateHandoff(context.Background(), "researcher", "w", "r", candidates("writer"))
			assert.False(t, ok)
		})
	}
}

func TestEvaluateHandoff_NoOracleOrCandidates(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))
	_, ok := m.EvaluateHandoff(context.Background(), "a", "w", "r", candidates("b"))
	assert.False(t, ok)

	m = NewManager(&mockHandoffOracle{}, zaptest.NewLogger(t))
	_, ok = m.EvaluateHandoff(context.Background(), "a", "w", "r", nil)
	assert.False(t, ok)
}

func TestCreatePackage_EnrichedByOracle(t *testing.T) {
	mock := &mockHandoffOracle{
		buildFn: func(q oracle.PackageQuery) (*oracle.PackageDraft, error) {
			assert.Equal(t, "researcher", q.FromAgent)
			return &oracle.PackageDraft{
				PackageText:      "summarized findings",
				SuccessCriteria:  []string{"report covers all sources"},
				QualityChecklist: []string{"no broken links"},
				ToolRequirements: []string{"browser"},
				EstimatedEffort:  "complex",
			}, nil
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	pkg, err := m.CreatePackage(context.Background(), "researcher", "writer",
		"found sources", map[string]any{"urls": "10"}, []string{"write"}, "market report", "research done")
	require.NoError(t, err)

	assert.Equal(t, types.EffortComplex, pkg.EstimatedEffort)
	assert.Equal(t, "summarized findings", pkg.WorkCompleted)
	assert.Equal(t, []string{"no broken links"}, pkg.QualityChecklist)
	assert.Equal(t, []string{"browser"}, pkg.ToolRequirements)
	assert.Equal(t, "research done", pkg.HandoffReason)
	assert.False(t, pkg.CreatedAt.IsZero())
}

func TestCreatePackage_OracleFailureFallsBack(t *testing.T) {
	mock := &mockHandoffOracle{
		buildFn: func(oracle.PackageQuery) (*oracle.PackageDraft, error) {
			return nil, errors.New("oracle down")
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	pkg, err := m.CreatePackage(context.Background(), "researcher", "writer",
		"found sources", nil, []string{"write"}, "market report", "")
	require.NoError(t, err)
	require.NotNil(t, pkg)

	assert.Equal(t, types.EffortModerate, pkg.EstimatedEffort)
	assert.Empty(t, pkg.QualityChecklist)
	assert.NotEmpty(t, pkg.HandoffReason)
	assert.Equal(t, "found sources", pkg.WorkCompleted)
}

func TestCreatePackage_InvalidDraftEffortKeepsModerate(t *testing.T) {
	mock := &mockHandoffOracle{
		buildFn: func(oracle.PackageQuery) (*oracle.PackageDraft, error) {
			return &oracle.PackageDraft{EstimatedEffort: "herculean"}, nil
		},
	}
	m := NewManager(mock, zaptest.NewLogger(t))

	pkg, err := m.CreatePackage(context.Background(), "a", "b", "w", nil, nil, "t", "r")
	require.NoError(t, err)
	assert.Equal(t, types.EffortModerate, pkg.EstimatedEffort)
}

func TestCreatePackage_SameAgentRejected(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))

	_, err := m.CreatePackage(context.Background(), "writer", "writer", "w", nil, nil, "t", "r")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidHandoff))
	assert.Empty(t, m.History())
}

func TestHistory_AppendOnlyInOrder(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))

	_, err := m.CreatePackage(context.Background(), "a", "b", "w1", nil, nil, "t", "")
	require.NoError(t, err)
	_, err = m.CreatePackage(context.Background(), "b", "c", "w2", nil, nil, "t", "")
	require.NoError(t, err)

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].FromAgent)
	assert.Equal(t, "b", history[1].FromAgent)

	// The returned slice is a copy.
	history[0] = nil
	assert.NotNil(t, m.History()[0])

	m.Reset()
	assert.Empty(t, m.History())
}
