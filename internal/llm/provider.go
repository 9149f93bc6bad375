// Package llm implements C7: the single-choke-point LLM gateway used by
// both ai_inference/ai_extract nodes and the fallback chatbot. Grounded on
// original_source/services/ai_service.py (provider call, demo-mode
// fallback strings, non-blocking execution logging) and
// original_source/services/prompt_service.py (system prompt construction,
// intent/sentiment heuristics, action-tag protocol).
package llm

import "context"

// Provider is a single upstream model backend. Implementations live under
// internal/llm/providers/*.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}
