package anthropicprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	resp *anthropic.Message
	err  error
}

func (f *fakeMessages) New(context.Context, anthropic.MessageNewParams) (*anthropic.Message, error) {
	return f.resp, f.err
}

func TestCompleteReturnsFirstTextBlock(t *testing.T) {
	fake := &fakeMessages{resp: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Text: "hello from claude"}},
	}}
	c := &Client{messages: fake, model: anthropic.ModelClaude3_5SonnetLatest, maxTokens: 1024}

	out, err := c.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	require.Equal(t, "hello from claude", out)
}

func TestCompleteWrapsProviderError(t *testing.T) {
	fake := &fakeMessages{err: errors.New("529 overloaded")}
	c := &Client{messages: fake, model: anthropic.ModelClaude3_5SonnetLatest, maxTokens: 1024}

	_, err := c.Complete(context.Background(), "system", "user")
	require.Error(t, err)
}
