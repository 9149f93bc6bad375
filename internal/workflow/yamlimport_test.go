package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/workflow"
)

const sampleYAML = `
name: lead intake
trigger_kind: keyword
trigger_config:
  keywords: ["hi", "hello"]
nodes:
  - id: n1
    kind: start
    label: Start
  - id: n2
    kind: lead_capture
    label: Capture lead
    config:
      fields: ["name", "email"]
  - id: n3
    kind: end
    label: End
edges:
  - source: n1
    target: n2
  - source: n2
    target: n3
`

func TestParseYAMLBuildsValidWorkflow(t *testing.T) {
	w, err := workflow.ParseYAML("tenant-1", []byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "tenant-1", w.TenantID)
	require.Equal(t, "lead intake", w.Name)
	require.Equal(t, workflow.TriggerKeyword, w.TriggerKind)
	require.Equal(t, []any{"hi", "hello"}, w.TriggerConfig["keywords"])
	require.Len(t, w.Nodes, 3)
	require.Equal(t, workflow.NodeLeadCapture, w.Nodes[1].Kind)
	require.Len(t, w.Edges, 2)

	require.NoError(t, workflow.Validate(w))
}

func TestParseYAMLRejectsMalformedDocument(t *testing.T) {
	_, err := workflow.ParseYAML("tenant-1", []byte("not: [valid"))
	require.Error(t, err)
}
