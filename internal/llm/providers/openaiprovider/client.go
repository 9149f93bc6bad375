// Package openaiprovider adapts github.com/openai/openai-go's chat
// completions API to the llm.Provider interface. The wrapper shape (a
// narrow interface over the client's Completions service, so tests can
// substitute a fake) is grounded on the teacher's features/model/openai
// adapter; the calls themselves target openai-go's actual API surface.
package openaiprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/convoflow/workflow-engine/internal/llm"
)

// completionsAPI is the subset of openai.ChatCompletionService used here.
type completionsAPI interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// Client adapts an OpenAI chat-completions endpoint to llm.Provider.
type Client struct {
	completions completionsAPI
	model       openai.ChatModel
}

// Options configures Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   openai.ChatModel
}

// New builds a Client. It fails fast on a missing API key rather than
// deferring the error to the first call.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openaiprovider: APIKey is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)

	model := opts.Model
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &Client{completions: &cli.Chat.Completions, model: model}, nil
}

// Name implements llm.Provider.
func (c *Client) Name() string { return "openai" }

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openaiprovider: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openaiprovider: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ llm.Provider = (*Client)(nil)
