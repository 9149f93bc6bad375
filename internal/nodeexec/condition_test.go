package nodeexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

func TestConditionContains(t *testing.T) {
	doc := ctxdoc.Document{"ai_output": "I recommend booking a visit"}
	node := workflow.Node{Config: map[string]any{"variable": "ai_output", "operator": "contains", "value": "booking"}}

	res, err := nodeexec.ConditionExecutor{}.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "true", res.Output["condition_eval"])
}

func TestConditionGreaterThanHandlesCurrencyStrings(t *testing.T) {
	doc := ctxdoc.Document{"budget": "$1,200"}
	node := workflow.Node{Config: map[string]any{"variable": "budget", "operator": "greater_than", "value": "1000"}}

	res, err := nodeexec.ConditionExecutor{}.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "true", res.Output["condition_eval"])
}

func TestConditionExistsFalseWhenMissing(t *testing.T) {
	doc := ctxdoc.Document{}
	node := workflow.Node{Config: map[string]any{"variable": "email", "operator": "exists"}}

	res, err := nodeexec.ConditionExecutor{}.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "false", res.Output["condition_eval"])
}
