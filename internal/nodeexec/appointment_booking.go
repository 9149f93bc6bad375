package nodeexec

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/scheduling"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// AppointmentBookingExecutor handles workflow.NodeAppointmentBooking, a
// two-phase node: the first pass proposes slots and suspends, the second
// pass (on resume, when pending_slots/latest_reply are present in the
// context document) uses the model to match the customer's free-text
// reply to one of the proposed slots and books it. Ported from
// workflow_engine.py's "appointment_booking" node_type.
type AppointmentBookingExecutor struct {
	Scheduling    *scheduling.Service
	Generator     Generator
	Sender        channel.Sender
	Conversations store.Conversations
}

var digitsOnly = regexp.MustCompile(`[^\d]`)

func (e AppointmentBookingExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	latestReply, _ := doc["latest_reply"].(string)
	pendingSlots, hasPending := doc["pending_slots"].([]any)

	if latestReply != "" && hasPending && len(pendingSlots) > 0 {
		return e.resume(ctx, node, doc, latestReply, pendingSlots)
	}
	return e.propose(ctx, node, doc)
}

func (e AppointmentBookingExecutor) resume(ctx context.Context, node workflow.Node, doc ctxdoc.Document, latestReply string, pendingSlots []any) (Result, error) {
	tenantID := stringField(doc, "business_id")

	matchPrompt := fmt.Sprintf("Identify which of these slots the user selected.\nSLOTS: %v\nUSER REPLY: %q\n\nReturn ONLY the index (0, 1, 2...) of the slot, or \"none\" if no match.", pendingSlots, latestReply)
	idxText := e.Generator.Generate(ctx, tenantID, triggerString(doc, "user_id"), "You are a precise slot matcher. Return ONLY the index or 'none'.", matchPrompt)

	idx, err := strconv.Atoi(digitsOnly.ReplaceAllString(idxText, ""))
	if err != nil || idx < 0 || idx >= len(pendingSlots) {
		retryMsg := "I'm sorry, I didn't quite catch that. Which of those times works best for you?"
		return Result{
			Output: map[string]any{
				"orchestration_signal": "suspend",
				"resume_node_id":       node.ID,
				"pending_slots":        pendingSlots,
				"ai_output":            retryMsg,
			},
			Suspend: true,
		}, nil
	}

	slot, ok := pendingSlots[idx].(map[string]any)
	if !ok {
		return Result{Output: map[string]any{"booking_result": "failed", "error": "malformed slot"}}, nil
	}
	startStr, _ := slot["start"].(string)
	startAt, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return Result{Output: map[string]any{"booking_result": "failed", "error": "invalid slot start time"}}, nil
	}

	apptTypeID := stringField(doc, "appointment_type_id")
	if apptTypeID == "" {
		apptTypeID, _ = node.Config["appointment_type_id"].(string)
	}
	leadID := stringField(doc, "lead_id")
	conversationID := triggerString(doc, "user_id")

	id, _, err := e.Scheduling.Book(ctx, scheduling.BookingRequest{
		TenantID:          tenantID,
		AppointmentTypeID: apptTypeID,
		StartAt:           startAt,
		LeadID:            leadID,
		ConversationID:    conversationID,
		Notes:             fmt.Sprintf("Booked via workflow %s", node.WorkflowID),
	}, nil)
	if err != nil {
		return Result{Output: map[string]any{"booking_result": "failed", "error": err.Error()}}, nil
	}

	display, _ := slot["display"].(string)
	confirmation := fmt.Sprintf("Confirmed! You are booked for %s.", display)
	e.deliver(ctx, tenantID, doc, confirmation)

	return Result{Output: map[string]any{
		"booking_result": "success",
		"appointment_id": id,
		"booked_slot":    slot,
	}}, nil
}

func (e AppointmentBookingExecutor) propose(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	tenantID := stringField(doc, "business_id")
	configuredTypeID, _ := node.Config["appointment_type_id"].(string)
	apptTypeID, err := e.Scheduling.ResolveTypeID(ctx, tenantID, configuredTypeID)
	if err != nil {
		return Result{Output: map[string]any{"error": "no appointment types found"}}, nil
	}

	var allSlots []scheduling.Slot
	now := time.Now()
	for i := 1; i <= 3; i++ {
		day := now.AddDate(0, 0, i)
		slots, err := e.Scheduling.AvailableSlots(ctx, tenantID, day, apptTypeID)
		if err != nil {
			return Result{}, fmt.Errorf("nodeexec: appointment_booking: %w", err)
		}
		allSlots = append(allSlots, slots...)
	}

	if len(allSlots) > 3 {
		allSlots = allSlots[:3]
	}
	if len(allSlots) == 0 {
		return Result{Output: map[string]any{
			"booking_result": "no_slots",
			"ai_output":      "I'm sorry, we don't have any available slots right now.",
		}}, nil
	}

	proposedSlots := make([]any, len(allSlots))
	slotsText := ""
	for i, s := range allSlots {
		proposedSlots[i] = map[string]any{"start": s.Start.Format(time.RFC3339), "display": s.Display}
		slotsText += fmt.Sprintf("- %s\n", s.Display)
	}

	proposalPrompt := fmt.Sprintf("Invite the user to book an appointment. Offer these slots and ask them to pick one:\n%s", slotsText)
	proposalMsg := e.Generator.Generate(ctx, tenantID, triggerString(doc, "user_id"), "", proposalPrompt)

	e.deliver(ctx, tenantID, doc, proposalMsg)

	return Result{
		Output: map[string]any{
			"orchestration_signal": "suspend",
			"resume_node_id":       node.ID,
			"pending_slots":        proposedSlots,
			"ai_output":            proposalMsg,
			"appointment_type_id":  apptTypeID,
		},
		Suspend: true,
	}, nil
}

func (e AppointmentBookingExecutor) deliver(ctx context.Context, tenantID string, doc ctxdoc.Document, body string) {
	if target := triggerString(doc, "from_number"); target != "" && e.Sender != nil {
		_ = e.Sender.Send(ctx, tenantID, target, body)
		return
	}
	if userID := triggerString(doc, "user_id"); userID != "" && e.Conversations != nil {
		if convID, err := e.Conversations.EnsureConversation(ctx, tenantID, userID, "web"); err == nil {
			_ = e.Conversations.StoreMessage(ctx, convID, "agent", body)
		}
	}
}
