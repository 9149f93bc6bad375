package llm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/store"
)

func TestBuildSystemPromptInjectsIndustryTemplate(t *testing.T) {
	prompt := llm.BuildSystemPrompt(llm.BusinessProfile{
		Name:     "Acme Dental",
		Industry: "Healthcare",
	}, nil)

	require.Contains(t, prompt, "Acme Dental")
	require.Contains(t, prompt, "HEALTHCARE / CLINIC")
	require.Contains(t, prompt, "ACTION PROTOCOLS")
}

func TestBuildSystemPromptFallsBackToGeneralBusiness(t *testing.T) {
	prompt := llm.BuildSystemPrompt(llm.BusinessProfile{
		Name:     "Acme Co",
		Industry: "widgets",
	}, nil)

	require.Contains(t, prompt, "GENERAL BUSINESS")
}

func TestBuildSystemPromptTruncatesLongKnowledgeDocs(t *testing.T) {
	longContent := strings.Repeat("a", 4000)
	prompt := llm.BuildSystemPrompt(llm.BusinessProfile{Name: "Acme"}, []store.KnowledgeDoc{
		{Title: "Policy", Content: longContent},
	})

	require.Contains(t, prompt, "SOURCE: Policy")
	require.NotContains(t, prompt, strings.Repeat("a", 3001))
}
