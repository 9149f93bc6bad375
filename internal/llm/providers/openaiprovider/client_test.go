package openaiprovider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/llm/providers/openaiprovider"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := openaiprovider.New(openaiprovider.Options{})
	require.Error(t, err)
}
