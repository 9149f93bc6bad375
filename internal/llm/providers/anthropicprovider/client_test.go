package anthropicprovider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm/providers/anthropicprovider"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := anthropicprovider.New(anthropicprovider.Options{})
	require.Error(t, err)
}
