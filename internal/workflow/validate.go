package workflow

import "fmt"

// ValidationError is returned by Validate for malformed workflow
// definitions. It is a control-plane 4xx per spec.md §7 (user-data
// validation), never an invariant-violation panic.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate enforces the single-start invariant and that every edge
// references an existing node (spec §8.4, §3 Node invariant). It must run
// at CreateWorkflow time before persistence.
func Validate(w *Workflow) error {
	nodeIDs := make(map[string]struct{}, len(w.Nodes))
	starts := 0
	for _, n := range w.Nodes {
		if _, dup := nodeIDs[n.ID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		nodeIDs[n.ID] = struct{}{}
		if n.Kind == NodeStart {
			starts++
		}
	}
	if starts != 1 {
		return &ValidationError{Reason: fmt.Sprintf("workflow must have exactly one start node, found %d", starts)}
	}

	nodeKind := make(map[string]NodeKind, len(w.Nodes))
	for _, n := range w.Nodes {
		nodeKind[n.ID] = n.Kind
	}

	for _, e := range w.Edges {
		if _, ok := nodeIDs[e.Source]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("edge references missing source node %q", e.Source)}
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("edge references missing target node %q", e.Target)}
		}
		if e.Source == e.Target {
			switch nodeKind[e.Source] {
			case NodeWaitForReply, NodeAppointmentBooking:
				// The documented suspension re-entry pattern (spec §3, §9):
				// on resume the dispatcher follows this self-loop and runs
				// the node's executor again with latest_reply in context.
			default:
				return &ValidationError{Reason: fmt.Sprintf("node %q has a self-loop edge but is not a suspending node kind", e.Source)}
			}
		}
	}

	if err := validateAcyclic(w); err != nil {
		return err
	}

	return nil
}

// validateAcyclic rejects cycles other than the documented suspension
// re-entry pattern: a self-loop edge on a wait_for_reply or
// appointment_booking node, which the dispatcher follows on resume to run
// the node's executor again (spec §3, §9; DESIGN.md's
// internal/dispatch section). Such self-loops are excluded from the
// adjacency graph below — already validated as the only permitted kind
// of self-loop above — so a plain DFS over the rest of the edges is
// sufficient: any cycle found here is a genuine authoring error.
func validateAcyclic(w *Workflow) error {
	adj := make(map[string][]string, len(w.Nodes))
	for _, e := range w.Edges {
		if e.Source == e.Target {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(w.Nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return &ValidationError{Reason: fmt.Sprintf("workflow graph contains a cycle through node %q", next)}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, n := range w.Nodes {
		if color[n.ID] == white {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
