package nodeexec

import (
	"context"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/extract"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// AIExtractExecutor handles workflow.NodeAIExtract, delegating the actual
// prompt construction and JSON parsing to package extract (C8). Ported
// from workflow_engine.py's "ai_extract" node_type.
type AIExtractExecutor struct {
	Generator Generator
}

func (e AIExtractExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	fields := extractFields(node.Config["fields"])

	var history []extract.HistoryEntry
	if raw, ok := doc["history"].([]any); ok {
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				history = append(history, extract.HistoryEntry{
					Role:    stringField(m, "role"),
					Content: stringField(m, "content"),
				})
			}
		}
	}

	req := extract.Request{
		Fields:        fields,
		LatestMessage: firstNonEmpty(triggerString(doc, "message_body"), triggerString(doc, "message")),
		History:       history,
		PriorAIOutput: stringField(doc, "ai_output"),
		TenantID:      stringField(doc, "business_id"),
		ParticipantID: triggerString(doc, "user_id"),
	}

	data := extract.Run(ctx, e.Generator, req)
	return Result{Output: data}, nil
}

func extractFields(raw any) []extract.Field {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]extract.Field, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fields = append(fields, extract.Field{
			Name:        stringField(m, "name"),
			Description: stringField(m, "description"),
			Type:        stringField(m, "type"),
		})
	}
	return fields
}
