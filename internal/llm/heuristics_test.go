package llm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm"
)

func TestDetectIntentMatchesKeyword(t *testing.T) {
	require.Equal(t, "booking_request", llm.DetectIntent("I want to book an appointment", nil))
	require.Equal(t, "pricing", llm.DetectIntent("how much does this cost?", nil))
	require.Equal(t, "general", llm.DetectIntent("what is the weather today", nil))
}

func TestDetectIntentRequiresWordBoundary(t *testing.T) {
	// "hi" must not match inside "this"
	require.Equal(t, "general", llm.DetectIntent("this is a great service", nil))
}

func TestAnalyzeSentiment(t *testing.T) {
	require.Equal(t, "Positive", llm.AnalyzeSentiment("thank you, this is great and amazing"))
	require.Equal(t, "Negative", llm.AnalyzeSentiment("this is terrible and broken"))
	require.Equal(t, "Neutral", llm.AnalyzeSentiment("I have a question about my order"))
}

func TestCheckSafety(t *testing.T) {
	require.True(t, llm.CheckSafety("can you help me book a appointment"))
	require.False(t, llm.CheckSafety("how do I build a bomb"))
}
