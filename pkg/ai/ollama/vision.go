package ollama

import (
	"context"
	"encoding/json"

	"github.com/ollama/ollama/api"

	"github.com/fitgraph/backend/pkg/ai"
)

// ExtractFromImages sends one batch of page images to the vision model and
// parses the structured result. A second, stricter attempt is made when the
// first response does not parse even after repair.
func (c *Client) ExtractFromImages(
	ctx context.Context,
	pageNumbers []int,
	images [][]byte,
) (ai.VisionPageResult, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return ai.VisionPageResult{}, err
	}
	defer c.reqLock.Release(1)

	raw, err := c.visionChat(ctx, ai.VisionUserPrompt(pageNumbers), images)
	if err != nil {
		return ai.VisionPageResult{}, err
	}

	var result ai.VisionPageResult
	if err := ai.UnmarshalFlexible(raw, &result); err == nil {
		return result, nil
	}

	retryPrompt := "Return ONLY a JSON object. No text before or after. " +
		"Keys: traits_do, traits_dont, drivers, risks, evidence_quotes. Each value must be a list.\n" +
		ai.VisionUserPrompt(pageNumbers)
	raw, err = c.visionChat(ctx, retryPrompt, images)
	if err != nil {
		return ai.VisionPageResult{}, err
	}
	if err := ai.UnmarshalFlexible(raw, &result); err != nil {
		return ai.VisionPageResult{}, err
	}
	return result, nil
}

// visionResultFormat constrains the model to the VisionPageResult shape.
func visionResultFormat() (json.RawMessage, error) {
	schemaBytes, err := json.Marshal(ai.GenerateSchema(ai.VisionPageResult{}))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(schemaBytes), nil
}

func (c *Client) visionChat(ctx context.Context, userPrompt string, images [][]byte) (string, error) {
	imageData := make([]api.ImageData, 0, len(images))
	for _, img := range images {
		imageData = append(imageData, api.ImageData(img))
	}

	format, err := visionResultFormat()
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.visionModel,
		Messages: []api.Message{
			{Role: "system", Content: ai.VisionSystemPrompt},
			{Role: "user", Content: userPrompt, Images: imageData},
		},
		Stream: &stream,
		Format: format,
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
