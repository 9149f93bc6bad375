// Package anthropicprovider adapts github.com/anthropics/anthropic-sdk-go
// to the llm.Provider interface, serving as the Gateway's secondary
// provider when the OpenAI provider is unavailable or fails (spec §4.7).
package anthropicprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/convoflow/workflow-engine/internal/llm"
)

// messagesAPI is the subset of anthropic.MessageService used here.
type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// Client adapts an Anthropic Messages endpoint to llm.Provider.
type Client struct {
	messages  messagesAPI
	model     anthropic.Model
	maxTokens int64
}

// Options configures Client.
type Options struct {
	APIKey    string
	Model     anthropic.Model
	MaxTokens int64
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("anthropicprovider: APIKey is required")
	}
	cli := anthropic.NewClient(option.WithAPIKey(opts.APIKey))

	model := opts.Model
	if model == "" {
		model = anthropic.ModelClaude3_5SonnetLatest
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Client{messages: &cli.Messages, model: model, maxTokens: maxTokens}, nil
}

// Name implements llm.Provider.
func (c *Client) Name() string { return "anthropic" }

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropicprovider: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropicprovider: empty response")
	}
	return resp.Content[0].Text, nil
}

var _ llm.Provider = (*Client)(nil)
