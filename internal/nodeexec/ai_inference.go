package nodeexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Generator is the subset of llm.Gateway every AI-backed executor depends
// on.
type Generator interface {
	Generate(ctx context.Context, tenantID, participantID, systemPrompt, userMessage string) string
}

// AIInferenceExecutor handles workflow.NodeAIInference: it builds a
// business-profile-aware system prompt, layers the node's specific goal
// and the current context document on top, calls the LLM gateway, and
// (when configured) auto-sends the response to the customer. Ported from
// workflow_engine.py's "ai_inference" node_type.
type AIInferenceExecutor struct {
	Generator     Generator
	Settings      store.BusinessSettings
	KnowledgeDocs store.KnowledgeDocs
	Sender        channel.Sender
	Conversations store.Conversations
}

func (e AIInferenceExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	tenantID := stringField(doc, "business_id")

	profile := llm.BusinessProfile{}
	if e.Settings != nil {
		if raw, err := e.Settings.Get(ctx, tenantID); err == nil {
			profile = profileFromSettings(raw)
		}
	}
	var docs []store.KnowledgeDoc
	if e.KnowledgeDocs != nil {
		docs, _ = e.KnowledgeDocs.List(ctx, tenantID)
	}
	systemPersona := llm.BuildSystemPrompt(profile, docs)

	nodeGoal, _ := node.Config["prompt_template"].(string)
	if nodeGoal == "" {
		nodeGoal = "You are a helpful assistant."
	}

	messageBody := triggerString(doc, "message_body")
	fromNumber := triggerString(doc, "from_number")
	if fromNumber == "" {
		fromNumber = "Unknown"
	}

	stateJSON, _ := json.Marshal(map[string]any(doc))
	systemInstruction := fmt.Sprintf(`%s

*** WORKFLOW GOAL ***
Your current specific objective in this workflow is:
%s

*** CONTEXT ***
User Input: %s
From: %s
Current Workflow State: %s

Respond directly to the user to achieve the WORKFLOW GOAL.
`, systemPersona, nodeGoal, messageBody, fromNumber, stateJSON)

	userMessage, _ := node.Config["input_text"].(string)
	if userMessage == "" {
		userMessage = messageBody
	}
	if userMessage == "" {
		userMessage = "Continue"
	}

	responseText := e.Generator.Generate(ctx, tenantID, triggerString(doc, "user_id"), systemInstruction, userMessage)

	autoSend := true
	if v, ok := node.Config["auto_send"].(bool); ok {
		autoSend = v
	}
	if autoSend {
		if target := triggerString(doc, "from_number"); target != "" && e.Sender != nil {
			_ = e.Sender.Send(ctx, tenantID, target, responseText)
		} else if userID := triggerString(doc, "user_id"); userID != "" && e.Conversations != nil {
			if convID, err := e.Conversations.EnsureConversation(ctx, tenantID, userID, "web"); err == nil {
				_ = e.Conversations.StoreMessage(ctx, convID, "agent", responseText)
			}
		}
	}

	return Result{Output: map[string]any{"ai_output": responseText}}, nil
}

func profileFromSettings(raw map[string]any) llm.BusinessProfile {
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
