// Package extract implements C8: schema-constrained JSON extraction from a
// model response, including markdown-fence stripping and a typed soft
// error (never a Go error) on malformed output. Grounded on
// original_source/services/workflow_engine.py's ai_extract node.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Field describes one attribute an ai_extract node asks the model for.
type Field struct {
	Name        string
	Description string
	Type        string
}

// HistoryEntry is one prior conversation turn made available to the
// extractor as context.
type HistoryEntry struct {
	Role    string
	Content string
}

// Request bundles everything needed to run one extraction.
type Request struct {
	Fields        []Field
	LatestMessage string
	History       []HistoryEntry
	PriorAIOutput string
	TenantID      string
	ParticipantID string
}

// Generator is the subset of llm.Gateway this package depends on, kept
// narrow so tests don't need a full Gateway.
type Generator interface {
	Generate(ctx context.Context, tenantID, participantID, systemPrompt, userMessage string) string
}

// Run builds the extraction prompt, calls the generator, and parses the
// result. A parse failure never propagates as a Go error: it degrades to
// the {"extraction_error": "failed_to_parse_json"} field, matching
// workflow_engine.py's except-and-continue behavior so the DAG can branch
// on it with a condition node.
func Run(ctx context.Context, gw Generator, req Request) map[string]any {
	system := buildSystemInstruction(req.Fields)
	user := buildAnalysisText(req)

	raw := gw.Generate(ctx, req.TenantID, req.ParticipantID, system, user)
	data, err := Parse(raw)
	if err != nil {
		return map[string]any{"extraction_error": "failed_to_parse_json"}
	}
	return data
}

func buildSystemInstruction(fields []Field) string {
	var b strings.Builder
	b.WriteString("You are an elite Data Extraction Specialist.\nYour task is to extract specific attributes from the provided chat snippet and return a RAW JSON object.\n\nFIELDS TO EXTRACT:\n")
	for _, f := range fields {
		desc := f.Description
		if desc == "" {
			desc = "The " + f.Name
		}
		typ := f.Type
		if typ == "" {
			typ = "string"
		}
		fmt.Fprintf(&b, "- %s: %s (Type: %s)\n", f.Name, desc, typ)
	}
	b.WriteString(`
CRITICAL RULES:
1. Return ONLY valid JSON.
2. No markdown blocks. No conversational text.
3. If you can't find a value, set it to null.
4. Be precise. If the user says "I am from Apple", company is "Apple".
5. For numbers (budget, etc.), return only the numeric value (no currency symbols or commas).

EXAMPLE RESPONSE:
{ "company": "Tesla", "budget": 50000 }
`)
	return b.String()
}

func buildAnalysisText(req Request) string {
	history := req.History
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	var hist strings.Builder
	for _, h := range history {
		fmt.Fprintf(&hist, "%s: %s\n", h.Role, h.Content)
	}
	return fmt.Sprintf("Latest Message: %s\n\nChat History:\n%s\nPrevious AI Output: %s",
		req.LatestMessage, hist.String(), req.PriorAIOutput)
}

// Parse strips markdown code fences and decodes the remainder as a JSON
// object.
func Parse(raw string) (map[string]any, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return data, nil
}
