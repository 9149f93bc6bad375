package nodeexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// ActionExecutor handles workflow.NodeAction, dispatching on the node's
// configured action_type (send_message/create_ticket/assign_agent).
// Ported from workflow_engine.py's "action" node_type block.
type ActionExecutor struct {
	Sender        channel.Sender
	Conversations store.Conversations
	Tickets       store.Tickets
}

func (e ActionExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	actionType, _ := node.Config["action_type"].(string)
	if actionType == "" {
		actionType = "send_message"
	}

	switch actionType {
	case "send_message":
		return e.sendMessage(ctx, node, doc)
	case "create_ticket":
		return e.createTicket(ctx, node, doc)
	case "assign_agent":
		return e.assignAgent(ctx, node, doc)
	default:
		return Result{Output: map[string]any{"action_result": "unknown_type"}}, nil
	}
}

func (e ActionExecutor) sendMessage(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	targetNumber := triggerString(doc, "from_number")
	if targetNumber == "" {
		if v, ok := node.Config["to_number"].(string); ok {
			targetNumber = v
		}
	}

	template, _ := node.Config["template"].(string)
	if template == "" {
		template = "Hello from the automation platform!"
	}
	body := ctxdoc.Hydrate(template, doc)

	if targetNumber != "" && e.Sender != nil {
		tenantID, _ := doc["business_id"].(string)
		if err := e.Sender.Send(ctx, tenantID, targetNumber, body); err != nil {
			return Result{Output: map[string]any{"action_result": "failed", "error": err.Error(), "message_body": body}}, nil
		}
		return Result{Output: map[string]any{"action_result": "sent", "message_body": body}}, nil
	}

	if userID := triggerString(doc, "user_id"); userID != "" {
		tenantID, _ := doc["business_id"].(string)
		convID, err := e.Conversations.EnsureConversation(ctx, tenantID, userID, "web")
		if err != nil {
			return Result{Output: map[string]any{"action_result": "failed", "error": err.Error(), "message_body": body}}, nil
		}
		if err := e.Conversations.StoreMessage(ctx, convID, "agent", body); err != nil {
			return Result{Output: map[string]any{"action_result": "failed", "error": err.Error(), "message_body": body}}, nil
		}
		return Result{Output: map[string]any{"action_result": "sent_web", "message_body": body}}, nil
	}

	return Result{Output: map[string]any{"action_result": "failed", "error": "no target number or user_id found"}}, nil
}

func (e ActionExecutor) createTicket(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	subject, _ := node.Config["subject"].(string)
	if subject == "" {
		subject = "New Workflow Ticket"
	}
	description, _ := node.Config["description"].(string)
	if description == "" {
		description = "Created via automation"
	}
	priority, _ := node.Config["priority"].(string)
	if priority == "" {
		priority = "medium"
	}

	if trigger, ok := doc["trigger"]; ok {
		if raw, err := json.Marshal(trigger); err == nil {
			description = fmt.Sprintf("%s\nContext: %s", description, raw)
		}
	}

	tenantID, _ := doc["business_id"].(string)
	id, err := e.Tickets.Create(ctx, &store.Ticket{
		TenantID:    tenantID,
		Subject:     subject,
		Description: description,
		Status:      "open",
		Priority:    priority,
	})
	if err != nil {
		return Result{}, fmt.Errorf("nodeexec: create_ticket: %w", err)
	}
	return Result{Output: map[string]any{"ticket_id": id, "action_result": "ticket_created"}}, nil
}

func (e ActionExecutor) assignAgent(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	agentID, _ := node.Config["agent_id"].(string)
	ticketID, _ := doc["ticket_id"].(string)

	if ticketID == "" || agentID == "" {
		return Result{Output: map[string]any{"action_result": "skipped", "reason": "missing_id"}}, nil
	}

	tenantID, _ := doc["business_id"].(string)
	if err := e.Tickets.AssignAgent(ctx, tenantID, ticketID, agentID); err != nil {
		return Result{}, fmt.Errorf("nodeexec: assign_agent: %w", err)
	}
	return Result{Output: map[string]any{"assigned_to": agentID, "action_result": "assigned"}}, nil
}

func triggerString(doc ctxdoc.Document, key string) string {
	trigger, ok := doc["trigger"]
	if !ok {
		return ""
	}
	m, ok := trigger.(map[string]any)
	if !ok {
		if d, ok := trigger.(ctxdoc.Document); ok {
			m = d
		} else {
			return ""
		}
	}
	s, _ := m[key].(string)
	return s
}
