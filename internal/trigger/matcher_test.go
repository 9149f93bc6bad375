package trigger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/trigger"
)

func TestMatchesEmptyConfigAlwaysMatches(t *testing.T) {
	require.True(t, trigger.Matches(nil, trigger.Event{}))
}

func TestMatchesKeywordCaseInsensitiveSubstring(t *testing.T) {
	cfg := map[string]any{"keyword": "pricing"}
	require.True(t, trigger.Matches(cfg, trigger.Event{Message: "What's your PRICING like?"}))
	require.False(t, trigger.Matches(cfg, trigger.Event{Message: "hello there"}))
}

func TestMatchesIntentExact(t *testing.T) {
	cfg := map[string]any{"intent": "booking_request"}
	require.True(t, trigger.Matches(cfg, trigger.Event{Intent: "booking_request"}))
	require.False(t, trigger.Matches(cfg, trigger.Event{Intent: "general"}))
}

func TestMatchesLeadStatus(t *testing.T) {
	cfg := map[string]any{"status": "won"}
	require.True(t, trigger.Matches(cfg, trigger.Event{NewStatus: "Won"}))
	require.False(t, trigger.Matches(cfg, trigger.Event{NewStatus: "lost"}))
}

func TestKindsForExtendsMessageCreated(t *testing.T) {
	require.ElementsMatch(t, []string{"message_created", "keyword", "intent"}, trigger.KindsFor("message_created"))
}

func TestKindsForExtendsLeadStatusUpdate(t *testing.T) {
	require.ElementsMatch(t, []string{"lead_status_update", "lead_event"}, trigger.KindsFor("lead_status_update"))
}
