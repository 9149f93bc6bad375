// Package arbitration implements C6: deciding whether an inbound message
// resumes a suspended execution, starts one or more workflows, or falls
// through to the fallback AI chatbot. Exactly one of these applies to a
// given message (spec §6's exclusivity invariant), mirroring
// original_source/services/workflow_engine.py's
// trigger_workflow/check_and_resume_execution orchestration check.
package arbitration

import (
	"context"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/trigger"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Decision is the arbitration outcome.
type Decision string

const (
	DecisionResume   Decision = "resume"
	DecisionStart    Decision = "start"
	DecisionFallback Decision = "fallback"
)

// Outcome carries the chosen Decision plus whatever it needs to act on.
type Outcome struct {
	Decision    Decision
	ExecutionID string
	Workflows   []workflow.Workflow
}

// Resolver arbitrates a single inbound event.
type Resolver struct {
	Executions store.Executions
	Workflows  store.Workflows
}

// Resolve mirrors the original orchestration check: a resumable suspended
// execution always wins over starting a new workflow, which in turn wins
// over falling back to the AI chatbot.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, event trigger.Event) (Outcome, error) {
	if event.Kind == "message_created" && event.FromUser != "" {
		suspended, err := r.Executions.ListSuspendedByTenant(ctx, tenantID)
		if err != nil {
			return Outcome{}, err
		}
		for _, exec := range suspended {
			if executionBelongsToUser(exec, event.FromUser) {
				return Outcome{Decision: DecisionResume, ExecutionID: exec.ID}, nil
			}
		}
	}

	kindStrs := trigger.KindsFor(event.Kind)
	kinds := make([]workflow.TriggerKind, len(kindStrs))
	for i, k := range kindStrs {
		kinds[i] = workflow.TriggerKind(k)
	}

	active, err := r.Workflows.ListActive(ctx, tenantID, kinds...)
	if err != nil {
		return Outcome{}, err
	}

	var matched []workflow.Workflow
	for _, wf := range active {
		if trigger.Matches(wf.TriggerConfig, event) {
			matched = append(matched, wf)
		}
	}
	if len(matched) > 0 {
		return Outcome{Decision: DecisionStart, Workflows: matched}, nil
	}

	return Outcome{Decision: DecisionFallback}, nil
}

func executionBelongsToUser(exec workflow.Execution, userIdentifier string) bool {
	trig, ok := exec.Context["trigger"].(map[string]any)
	if !ok {
		return false
	}
	exUser, _ := trig["from_number"].(string)
	if exUser == "" {
		exUser, _ = trig["user_id"].(string)
	}
	return exUser == userIdentifier
}
