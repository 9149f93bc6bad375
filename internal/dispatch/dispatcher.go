// Package dispatch implements C4, the execution dispatcher: it wires
// C2 (internal/nodeexec), C3 (internal/dag), C5/C6 (internal/trigger,
// internal/arbitration), and the durable backend (internal/engine) into
// the consume loop described by spec §4.4 and §4.6. Ported from
// original_source/services/workflow_engine.py's trigger_workflow/
// process_node_async/check_and_resume_execution trio, split across a
// single long-lived engine.Engine workflow per Execution instead of one
// Celery task per node visit.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/convoflow/workflow-engine/internal/arbitration"
	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/engine"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/lock"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/queue"
	"github.com/convoflow/workflow-engine/internal/sideeffects"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/telemetry"
	"github.com/convoflow/workflow-engine/internal/trigger"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// WorkflowName is the single engine.WorkflowDefinition name every
// Execution runs under, registered once at startup (spec note: this
// domain only ever runs one workflow kind, see DESIGN.md's internal/engine
// entry).
const WorkflowName = "execution"

const (
	actLoadRun       = "dispatch.load_run"
	actRunNode       = "dispatch.run_node"
	actAdvance       = "dispatch.advance"
	actApplyResume   = "dispatch.apply_resume"
	actScheduleDelay = "dispatch.schedule_delay"
)

// lockTTL bounds how long the per-participant arbitration lock (§7) is
// held; arbitration plus the initial engine dispatch call is expected to
// complete well within it.
const lockTTL = 10 * time.Second

// Dispatcher owns the full C4 wiring: engine registration, the
// trigger-ingestion entry point, and the registered workflow/activity
// handlers that drive one Execution's node steps to completion or
// suspension.
type Dispatcher struct {
	Engine   engine.Engine
	Queue    queue.Queue
	Locker   lock.Locker
	Resolver *arbitration.Resolver
	Registry *nodeexec.Registry
	Emitter  *sideeffects.Emitter

	Tenants          store.Tenants
	Workflows        store.Workflows
	Executions       store.Executions
	Steps            store.Steps
	BusinessSettings store.BusinessSettings
	KnowledgeDocs    store.KnowledgeDocs
	Conversations    store.Conversations

	LLM    *llm.Gateway
	Sender channel.Sender
	Bus    hooks.Bus
	Log    telemetry.Logger
}

// New constructs a Dispatcher; Log defaults to a no-op logger when nil.
func New(d Dispatcher) *Dispatcher {
	if d.Log == nil {
		d.Log = telemetry.NewNoopLogger()
	}
	return &d
}

// RegisterWithEngine binds this Dispatcher's workflow and activity
// handlers to the configured engine.Engine. Call once at startup, before
// engine.StartWorker (temporalengine) or any HandleInboundMessage call.
func (d *Dispatcher) RegisterWithEngine(ctx context.Context) error {
	if err := d.Engine.RegisterActivity(ctx, engine.ActivityDefinition{Name: actLoadRun, Handler: d.activityLoadRun}); err != nil {
		return err
	}
	if err := d.Engine.RegisterActivity(ctx, engine.ActivityDefinition{Name: actRunNode, Handler: d.activityRunNode}); err != nil {
		return err
	}
	if err := d.Engine.RegisterActivity(ctx, engine.ActivityDefinition{Name: actAdvance, Handler: d.activityAdvance}); err != nil {
		return err
	}
	if err := d.Engine.RegisterActivity(ctx, engine.ActivityDefinition{Name: actApplyResume, Handler: d.activityApplyResume}); err != nil {
		return err
	}
	if err := d.Engine.RegisterActivity(ctx, engine.ActivityDefinition{Name: actScheduleDelay, Handler: d.activityScheduleDelay}); err != nil {
		return err
	}
	return d.Engine.RegisterWorkflow(ctx, engine.WorkflowDefinition{Name: WorkflowName, Handler: d.runExecution})
}

// HandleInboundMessage is the single entry point channel webhook handlers
// (WhatsApp, web widget) and CRM lead-status emitters call into. It
// enforces the subscription gate, arbitrates the event (resume/start/
// fallback), and dispatches accordingly (spec §4.6, §7).
func (d *Dispatcher) HandleInboundMessage(ctx context.Context, tenantID string, event trigger.Event) error {
	if d.Tenants != nil {
		status, err := d.Tenants.SubscriptionStatus(ctx, tenantID)
		if err != nil && err != store.ErrNotFound {
			return fmt.Errorf("dispatch: subscription check: %w", err)
		}
		if status != "" && status != "active" {
			d.Log.Warn(ctx, "dispatch: inbound message blocked, subscription not active", "tenant_id", tenantID, "status", status)
			return nil
		}
	}

	lockKey := tenantID + ":" + event.FromUser
	token, err := d.Locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return fmt.Errorf("dispatch: acquire arbitration lock: %w", err)
	}
	defer func() { _ = d.Locker.Unlock(ctx, lockKey, token) }()

	outcome, err := d.Resolver.Resolve(ctx, tenantID, event)
	if err != nil {
		return fmt.Errorf("dispatch: arbitrate: %w", err)
	}

	d.publish(ctx, hooks.Event{Type: hooks.ArbitrationResult, TenantID: tenantID, Data: map[string]any{"decision": string(outcome.Decision)}})

	switch outcome.Decision {
	case arbitration.DecisionResume:
		return d.resume(ctx, outcome.ExecutionID, event)
	case arbitration.DecisionStart:
		return d.start(ctx, tenantID, event, outcome.Workflows)
	default:
		return d.fallback(ctx, tenantID, event)
	}
}

func (d *Dispatcher) resume(ctx context.Context, executionID string, event trigger.Event) error {
	payload := resumeSignal{Body: event.Message, Trigger: event.ToContext()}
	if err := d.Engine.SignalWorkflow(ctx, executionID, "resume", payload); err != nil {
		return fmt.Errorf("dispatch: signal resume to execution %s: %w", executionID, err)
	}
	d.publish(ctx, hooks.Event{Type: hooks.ExecutionResumed, ExecutionID: executionID})
	return nil
}

func (d *Dispatcher) start(ctx context.Context, tenantID string, event trigger.Event, matched []workflow.Workflow) error {
	for _, wf := range matched {
		if _, err := d.startExecution(ctx, tenantID, wf.ID, event.ToContext()); err != nil {
			return err
		}
	}
	return nil
}

// TriggerWorkflow starts wf manually, bypassing arbitration entirely — the
// control-plane API's TriggerWorkflow operation (spec §6), for operator-
// or integration-initiated runs that don't originate from a customer
// message. payload seeds the execution's trigger context the same shape
// trigger.Event.ToContext produces, under workflow.TriggerManual.
func (d *Dispatcher) TriggerWorkflow(ctx context.Context, tenantID, workflowID string, payload map[string]any) (string, error) {
	trig := map[string]any{"kind": string(workflow.TriggerManual)}
	for k, v := range payload {
		trig[k] = v
	}
	return d.startExecution(ctx, tenantID, workflowID, trig)
}

func (d *Dispatcher) startExecution(ctx context.Context, tenantID, workflowID string, trig map[string]any) (string, error) {
	exec := &workflow.Execution{
		WorkflowID:   workflowID,
		TenantID:     tenantID,
		Status:       workflow.StatusRunning,
		TriggerEvent: trig,
		Context:      map[string]any{"trigger": trig, "business_id": tenantID},
		StartedAt:    d.now(),
	}
	if err := d.Executions.Create(ctx, exec); err != nil {
		return "", fmt.Errorf("dispatch: create execution for workflow %s: %w", workflowID, err)
	}
	if _, err := d.Engine.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: exec.ID, Workflow: WorkflowName, Input: exec.ID}); err != nil {
		return "", fmt.Errorf("dispatch: start execution %s: %w", exec.ID, err)
	}
	d.publish(ctx, hooks.Event{Type: hooks.ExecutionStarted, TenantID: tenantID, ExecutionID: exec.ID})
	return exec.ID, nil
}

// fallback answers the inbound message with the tenant's fallback AI
// chatbot when no workflow claims it (spec §4.7, §11): build the system
// prompt from the tenant's profile and knowledge base, generate a reply,
// strip and apply the action-tag protocol, and deliver it on the
// originating channel.
func (d *Dispatcher) fallback(ctx context.Context, tenantID string, event trigger.Event) error {
	var profile llm.BusinessProfile
	if d.BusinessSettings != nil {
		if raw, err := d.BusinessSettings.Get(ctx, tenantID); err == nil {
			profile = businessProfileFromSettings(raw)
		}
	}
	var docs []store.KnowledgeDoc
	if d.KnowledgeDocs != nil {
		docs, _ = d.KnowledgeDocs.List(ctx, tenantID)
	}
	systemPrompt := llm.BuildSystemPrompt(profile, docs)

	raw := d.LLM.Generate(ctx, tenantID, event.FromUser, systemPrompt, event.Message)
	tags := llm.ParseActionTags(raw)

	if err := d.deliverReply(ctx, tenantID, event, tags.CleanText); err != nil {
		return fmt.Errorf("dispatch: deliver fallback reply: %w", err)
	}

	if tags.LeadCapture != nil && d.Emitter != nil {
		name, _ := tags.LeadCapture["name"].(string)
		email, _ := tags.LeadCapture["email"].(string)
		phone, _ := tags.LeadCapture["phone"].(string)
		notes, _ := tags.LeadCapture["notes"].(string)
		_, _ = d.Emitter.SaveLead(ctx, &store.Lead{
			TenantID:        tenantID,
			Name:            firstNonEmpty(name, "Unknown"),
			Contact:         event.FromUser,
			Email:           email,
			Phone:           phone,
			Source:          "fallback_chatbot",
			Notes:           notes,
			Status:          "new",
			ConversationID:  event.FromUser,
			LastInteraction: d.now(),
		})
	}

	d.publish(ctx, hooks.Event{Type: hooks.MessageSent, TenantID: tenantID, Data: map[string]any{"channel": "fallback", "intent": tags.Intent, "sentiment": tags.Sentiment}})
	return nil
}

func (d *Dispatcher) deliverReply(ctx context.Context, tenantID string, event trigger.Event, body string) error {
	if event.Channel == "whatsapp" && d.Sender != nil {
		return d.Sender.Send(ctx, tenantID, event.FromUser, body)
	}
	if d.Conversations == nil {
		return nil
	}
	convID, err := d.Conversations.EnsureConversation(ctx, tenantID, event.FromUser, "web")
	if err != nil {
		return err
	}
	return d.Conversations.StoreMessage(ctx, convID, "agent", body)
}

func (d *Dispatcher) publish(ctx context.Context, ev hooks.Event) {
	if d.Bus == nil {
		return
	}
	if err := d.Bus.Publish(ctx, ev); err != nil {
		d.Log.Warn(ctx, "dispatch: publish event failed", "type", string(ev.Type), "error", err.Error())
	}
}

func (d *Dispatcher) now() time.Time { return time.Now().UTC() }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// businessProfileFromSettings mirrors nodeexec's unexported
// profileFromSettings helper; duplicated rather than exported because the
// fallback chatbot and ai_inference build the same BusinessProfile shape
// from two independent call sites that otherwise have no shared package.
func businessProfileFromSettings(raw map[string]any) llm.BusinessProfile {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := raw[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return llm.BusinessProfile{
		Name:               get("name", "business_name"),
		Industry:           get("industry"),
		Description:        get("description"),
		Services:           get("services"),
		Tone:               get("tone"),
		Hours:              get("hours"),
		Location:           get("location"),
		FAQ:                get("faq"),
		CustomInstructions: get("custom_instructions"),
		LearnedInsights:    get("learned_insights"),
	}
}

// resumeSignal is delivered on the "resume" signal channel of a suspended
// execution's workflow, carrying the correlated inbound reply.
type resumeSignal struct {
	Body    string
	Trigger map[string]any
}
