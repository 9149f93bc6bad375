package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/extract"
)

type fakeGenerator struct {
	response string
}

func (f *fakeGenerator) Generate(context.Context, string, string, string, string) string {
	return f.response
}

func TestRunParsesCleanJSON(t *testing.T) {
	gw := &fakeGenerator{response: `{"email": "jane@example.com", "budget": 5000}`}
	out := extract.Run(context.Background(), gw, extract.Request{
		Fields: []extract.Field{{Name: "email"}, {Name: "budget", Type: "number"}},
	})

	require.Equal(t, "jane@example.com", out["email"])
	require.Equal(t, float64(5000), out["budget"])
}

func TestRunStripsMarkdownFence(t *testing.T) {
	gw := &fakeGenerator{response: "```json\n{\"company\": \"Tesla\"}\n```"}
	out := extract.Run(context.Background(), gw, extract.Request{})
	require.Equal(t, "Tesla", out["company"])
}

func TestRunReturnsSoftErrorOnMalformedJSON(t *testing.T) {
	gw := &fakeGenerator{response: "sorry, I don't understand"}
	out := extract.Run(context.Background(), gw, extract.Request{})
	require.Equal(t, "failed_to_parse_json", out["extraction_error"])
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := extract.Parse("not json")
	require.Error(t, err)
}
