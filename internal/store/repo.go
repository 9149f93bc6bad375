// Package store declares the repository interfaces that the engine depends
// on for persistence. Concrete implementations live in store/postgres
// (gorm-backed relational store), store/mongostore (document-shaped
// conversation transcripts), and store/inmem (deterministic in-memory
// fakes for tests).
package store

import (
	"context"
	"errors"

	"github.com/convoflow/workflow-engine/internal/workflow"
)

// ErrNotFound is returned by repository Get methods when a record is
// absent. Callers (dispatch, arbitration) treat this as "drop the task" /
// "fall through", never as a fatal error.
var ErrNotFound = errors.New("store: not found")

type (
	// Tenants exposes the subscription gate used to block ingress for
	// expired/suspended tenants (spec §7).
	Tenants interface {
		SubscriptionStatus(ctx context.Context, tenantID string) (string, error)
	}

	// Workflows persists the authored DAG.
	Workflows interface {
		Create(ctx context.Context, w *workflow.Workflow) error
		Get(ctx context.Context, tenantID, id string) (*workflow.Workflow, error)
		ListActive(ctx context.Context, tenantID string, kinds ...workflow.TriggerKind) ([]workflow.Workflow, error)
		List(ctx context.Context, tenantID string) ([]workflow.Workflow, error)
		Delete(ctx context.Context, tenantID, id string) error
	}

	// Executions persists in-flight and terminal workflow runs. Update
	// takes the full record; callers are responsible for optimistic
	// concurrency via Execution.Version when the engine adapter doesn't
	// itself serialize access to a single execution (see §5).
	Executions interface {
		Create(ctx context.Context, e *workflow.Execution) error
		Get(ctx context.Context, id string) (*workflow.Execution, error)
		Update(ctx context.Context, e *workflow.Execution) error
		ListSuspendedByTenant(ctx context.Context, tenantID string) ([]workflow.Execution, error)
		List(ctx context.Context, tenantID, workflowID string) ([]workflow.Execution, error)
	}

	// Steps is the append-only journal under an Execution.
	Steps interface {
		Append(ctx context.Context, s *workflow.Step) error
		Update(ctx context.Context, s *workflow.Step) error
		ListByExecution(ctx context.Context, executionID string) ([]workflow.Step, error)
	}

	// Conversations keys conversations as "tenant:participant" to prevent
	// cross-tenant collision (spec §6, §8.2).
	Conversations interface {
		EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error)
		StoreMessage(ctx context.Context, conversationID, role, body string) error
	}

	// BusinessSettings returns the tenant profile used to build the
	// fallback AI's system prompt (spec §4.7).
	BusinessSettings interface {
		Get(ctx context.Context, tenantID string) (map[string]any, error)
	}

	// KnowledgeDocs returns knowledge-base excerpts for prompt building.
	KnowledgeDocs interface {
		List(ctx context.Context, tenantID string) ([]KnowledgeDoc, error)
	}

	// KnowledgeDoc is a single knowledge-base excerpt.
	KnowledgeDoc struct {
		Title   string
		Content string
	}
)
