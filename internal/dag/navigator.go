// Package dag implements C3: outgoing-edge resolution for a just-executed
// node, matching each edge's optional guard against the node's output.
// Ported from original_source/services/workflow_engine.py's
// get_next_nodes.
package dag

import (
	"fmt"

	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Next returns the nodes reachable from currentNodeID given that node's
// output. An edge with no Guard always passes; an edge with a Guard only
// passes when it matches the output's condition_eval field as a string.
func Next(w *workflow.Workflow, currentNodeID string, output map[string]any) []workflow.Node {
	nodesByID := make(map[string]workflow.Node, len(w.Nodes))
	for _, n := range w.Nodes {
		nodesByID[n.ID] = n
	}

	evalResult := fmt.Sprint(output["condition_eval"])

	var next []workflow.Node
	for _, e := range w.Edges {
		if e.Source != currentNodeID {
			continue
		}
		if e.Guard != nil && *e.Guard != evalResult {
			continue
		}
		if target, ok := nodesByID[e.Target]; ok {
			next = append(next, target)
		}
	}
	return next
}
