// Package ai defines the narrow generation contracts the pipeline may use.
// Both capabilities are optional: the core pipeline is deterministic and must
// function with the null implementations alone.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable signals that no generation backend is configured or
// reachable. Callers degrade to the deterministic path; this is never fatal.
var ErrUnavailable = errors.New("generation backend unavailable")

// TextGenerator rephrases or renders text. It is used only to polish
// already-deterministic template output, never to add facts.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// VisionQuote is one evidence quote returned by a vision model.
type VisionQuote struct {
	Page  int    `json:"page"`
	Quote string `json:"quote"`
}

// VisionDriver is one scored driving force returned by a vision model.
type VisionDriver struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// VisionPageResult is the structured output schema for one batch of page
// images. Missing keys decode as empty lists.
type VisionPageResult struct {
	TraitsDo       []string       `json:"traits_do"`
	TraitsDont     []string       `json:"traits_dont"`
	Drivers        []VisionDriver `json:"drivers"`
	Risks          []string       `json:"risks"`
	EvidenceQuotes []VisionQuote  `json:"evidence_quotes"`
}

// VisionExtractor extracts structured facts from rendered page images. The
// alternate fact source for scanned PDFs.
type VisionExtractor interface {
	ExtractFromImages(ctx context.Context, pageNumbers []int, images [][]byte) (VisionPageResult, error)
}

// NullTextGenerator is the default TextGenerator: always unavailable.
type NullTextGenerator struct{}

func (NullTextGenerator) Generate(context.Context, string, string, int) (string, error) {
	return "", ErrUnavailable
}

// NullVisionExtractor is the default VisionExtractor: always unavailable.
type NullVisionExtractor struct{}

func (NullVisionExtractor) ExtractFromImages(context.Context, []int, [][]byte) (VisionPageResult, error) {
	return VisionPageResult{}, ErrUnavailable
}
