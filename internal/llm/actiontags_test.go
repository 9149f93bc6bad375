package llm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm"
)

func TestParseActionTagsExtractsLeadCapture(t *testing.T) {
	raw := `Thanks! I've noted your details.
[ACTION: LEAD_CAPTURE | {"name": "Jane Doe", "phone": "+15550001111", "notes": "wants a demo"}]
[ANALYSIS: booking_request | Positive]`

	tags := llm.ParseActionTags(raw)

	require.Equal(t, "Jane Doe", tags.LeadCapture["name"])
	require.Equal(t, "+15550001111", tags.LeadCapture["phone"])
	require.Equal(t, "booking_request", tags.Intent)
	require.Equal(t, "Positive", tags.Sentiment)
	require.NotContains(t, tags.CleanText, "ACTION")
	require.NotContains(t, tags.CleanText, "ANALYSIS")
	require.Contains(t, tags.CleanText, "Thanks!")
}

func TestParseActionTagsDetectsSchedule(t *testing.T) {
	raw := "Sure, let's find you a slot.\n[ACTION: SCHEDULE]\n[ANALYSIS: booking_request | Neutral]"
	tags := llm.ParseActionTags(raw)

	require.True(t, tags.Schedule)
	require.Nil(t, tags.LeadCapture)
}

func TestParseActionTagsTolerantOfMissingTags(t *testing.T) {
	tags := llm.ParseActionTags("just a plain response")
	require.Equal(t, "just a plain response", tags.CleanText)
	require.False(t, tags.Schedule)
	require.Nil(t, tags.LeadCapture)
}
