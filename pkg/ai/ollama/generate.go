package ollama

import (
	"context"

	"github.com/ollama/ollama/api"
)

// Generate sends a single-turn prompt to the text model and returns the
// assistant's reply. Implements ai.TextGenerator.
func (c *Client) Generate(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
	maxTokens int,
) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	options := map[string]any{}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.textModel,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Options: options,
		Stream:  &stream,
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final = cr
		return nil
	}); err != nil {
		return "", err
	}
	return final.Message.Content, nil
}
