package llm

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"github.com/convoflow/workflow-engine/internal/telemetry"
)

// ExecutionLogger records a single prompt/response pair for later audit.
// Gateway invokes it from its own goroutine so logging never adds latency
// to the caller (spec §4.7: "non-blocking async prompt-execution logging",
// ported from original_source/services/db_service.py's log_prompt_execution
// call site in ai_service.py).
type ExecutionLogger interface {
	LogPromptExecution(ctx context.Context, tenantID, participantID, systemPrompt, userMessage, response string) error
}

// Gateway is the single choke-point every ai_inference/ai_extract node and
// the fallback chatbot call through (spec §4.7).
type Gateway struct {
	providers []Provider
	limiter   *rate.Limiter
	log       telemetry.Logger
	metrics   telemetry.Metrics
	execLog   ExecutionLogger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRateLimit applies a token-bucket limiter in front of every provider
// call, grounded on the adaptive limiter pattern the teacher places at the
// model.Client boundary.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) { g.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(g *Gateway) { g.log = l } }

// WithMetrics attaches a metrics sink.
func WithMetrics(m telemetry.Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// WithExecutionLogger attaches the audit-trail sink.
func WithExecutionLogger(e ExecutionLogger) Option { return func(g *Gateway) { g.execLog = e } }

// New builds a Gateway over an ordered provider chain: the first provider
// is tried first, later providers are used only when an earlier one
// errors.
func New(providers []Provider, opts ...Option) *Gateway {
	g := &Gateway{
		providers: providers,
		log:       telemetry.NewNoopLogger(),
		metrics:   telemetry.NewNoopMetrics(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate answers the single choke-point requirement of spec §4.7. It
// screens the user message for safety, respects the configured rate
// limit, and walks the provider chain. Generate never returns an error to
// the caller: provider failures degrade to a demo-mode string instead, the
// same contract original_source/services/ai_service.py established for
// its single OpenRouter endpoint, generalized here across a provider
// chain.
func (g *Gateway) Generate(ctx context.Context, tenantID, participantID, systemPrompt, userMessage string) string {
	if !CheckSafety(userMessage) {
		g.log.Warn(ctx, "llm: unsafe message blocked", "tenant_id", tenantID)
		return "I cannot answer that question as it violates our safety guidelines."
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "The AI service is taking too long to respond. Please try again."
		}
	}

	if len(g.providers) == 0 {
		return "Error: AI Service not configured."
	}

	var lastErr error
	for _, p := range g.providers {
		text, err := p.Complete(ctx, systemPrompt, userMessage)
		if err == nil {
			g.metrics.IncCounter("llm_generate_success", 1, "provider", p.Name())
			g.logExecution(tenantID, participantID, systemPrompt, userMessage, text)
			return text
		}
		lastErr = err
		g.metrics.IncCounter("llm_generate_failure", 1, "provider", p.Name())
		g.log.Error(ctx, "llm: provider failed, trying next", "provider", p.Name(), "error", err.Error())
	}

	return demoModeMessage(lastErr)
}

func (g *Gateway) logExecution(tenantID, participantID, systemPrompt, userMessage, response string) {
	if g.execLog == nil {
		return
	}
	log := g.log
	go func() {
		if err := g.execLog.LogPromptExecution(context.Background(), tenantID, participantID, systemPrompt, userMessage, response); err != nil {
			log.Error(context.Background(), "llm: failed to log prompt execution", "error", err.Error())
		}
	}()
}

// demoModeMessage maps a provider failure onto a user-facing string,
// ported from ai_service.py's per-status-code except ladder.
func demoModeMessage(err error) string {
	if err == nil {
		return "I'm having trouble processing that right now."
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "The AI service is taking too long to respond. Please try again."
	case strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return "AI Service Error: Unauthorized. Please check your provider API key."
	case strings.Contains(msg, "402"), strings.Contains(msg, "insufficient"), strings.Contains(msg, "credit"):
		return "AI Service Error: Insufficient credits with the AI provider."
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return "AI Service is busy. Please try again in a few seconds."
	default:
		return "I'm having trouble connecting to my AI service. Please try again in a moment."
	}
}
