// Package openai implements the ai.TextGenerator contract against an
// OpenAI-compatible chat API. Used only to polish deterministic template
// output; never a source of facts.
package openai

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps one OpenAI-compatible chat endpoint.
type Client struct {
	model string

	ChatClient *openai.Client
}

// NewClientParams configures a Client. BaseURL may point at any compatible
// server; empty uses the OpenAI default.
type NewClientParams struct {
	Model   string
	BaseURL string
	APIKey  string
}

func NewClient(params NewClientParams) *Client {
	opts := []option.RequestOption{}
	if params.APIKey != "" {
		opts = append(opts, option.WithAPIKey(params.APIKey))
	}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{
		model:      params.Model,
		ChatClient: &client,
	}
}

// Generate sends a system+user prompt pair and returns the completion text.
// Implements ai.TextGenerator.
func (c *Client) Generate(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
	maxTokens int,
) (string, error) {
	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if maxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}
