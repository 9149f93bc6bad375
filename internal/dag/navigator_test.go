package dag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/dag"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

func guard(s string) *string { return &s }

func TestNextFollowsUnguardedEdge(t *testing.T) {
	w := &workflow.Workflow{
		Nodes: []workflow.Node{{ID: "a"}, {ID: "b"}},
		Edges: []workflow.Edge{{Source: "a", Target: "b"}},
	}
	next := dag.Next(w, "a", map[string]any{})
	require.Len(t, next, 1)
	require.Equal(t, "b", next[0].ID)
}

func TestNextMatchesGuardAgainstConditionEval(t *testing.T) {
	w := &workflow.Workflow{
		Nodes: []workflow.Node{{ID: "c"}, {ID: "yes"}, {ID: "no"}},
		Edges: []workflow.Edge{
			{Source: "c", Target: "yes", Guard: guard("true")},
			{Source: "c", Target: "no", Guard: guard("false")},
		},
	}
	next := dag.Next(w, "c", map[string]any{"condition_eval": "true"})
	require.Len(t, next, 1)
	require.Equal(t, "yes", next[0].ID)
}

func TestNextSkipsGuardedEdgeWhenConditionEvalMissing(t *testing.T) {
	w := &workflow.Workflow{
		Nodes: []workflow.Node{{ID: "c"}, {ID: "yes"}},
		Edges: []workflow.Edge{{Source: "c", Target: "yes", Guard: guard("true")}},
	}
	next := dag.Next(w, "c", map[string]any{})
	require.Empty(t, next)
}
