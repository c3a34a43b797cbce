package ai

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fitgraph/backend/pkg/evidence"
	"github.com/fitgraph/backend/pkg/facts"
)

// VisionSystemPrompt pins the model to JSON-only output.
const VisionSystemPrompt = "You are an information extraction engine. Return ONLY valid JSON. No commentary, no markdown, no explanation."

const visionUserPromptTemplate = `Extract career-fit relevant insights from this personality report page image.
Return JSON with exactly these keys:
{
  "traits_do": ["short phrase 3-12 words", ...],
  "traits_dont": ["short phrase", ...],
  "drivers": [{"label": "Driver name", "score": 0}, ...],
  "risks": ["short phrase", ...],
  "evidence_quotes": [{"page": 1, "quote": "exact short quote from the page"}]
}
Rules:
- Use short phrases (3-12 words).
- Do not invent facts not visible in the image.
- If a key is not present on the page, return an empty list [].
- evidence_quotes must include at least 1 quote from the page if possible.
- Page number in evidence_quotes must be the page number given below.
Return only the JSON object, no other text.`

// VisionUserPrompt builds the per-batch user prompt.
func VisionUserPrompt(pageNumbers []int) string {
	pages := make([]string, 0, len(pageNumbers))
	for _, p := range pageNumbers {
		pages = append(pages, fmt.Sprintf("%d", p))
	}
	return visionUserPromptTemplate + "\n\nPage number(s) for this image: " + strings.Join(pages, ", ") + "."
}

func visionEvidence(result VisionPageResult, defaultPage int, label string) facts.Evidence {
	for _, q := range result.EvidenceQuotes {
		quote := strings.TrimSpace(q.Quote)
		if quote == "" {
			continue
		}
		page := q.Page
		if page == 0 {
			page = defaultPage
		}
		if cleaned, ok := evidence.PrepareForDisplay(quote, evidence.MaxSnippetLen); ok {
			return facts.Evidence{Page: page, Snippet: cleaned}
		}
	}
	// No usable quote: the normalized label is its own citation.
	return facts.Evidence{Page: defaultPage, Snippet: label}
}

func normalizePrefixed(raw, prefix string) (string, bool) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", false
	}
	// Models sometimes echo the prefix back; strip before re-prefixing.
	lower := strings.ToLower(body)
	for _, p := range []string{"do:", "don't:", "dont:"} {
		if strings.HasPrefix(lower, p) {
			body = strings.TrimSpace(body[len(p):])
			break
		}
	}
	cleaned := evidence.CleanSnippet(body, evidence.MaxSnippetLen-10)
	if cleaned == "" {
		return "", false
	}
	// Vision models tend to return lowercase phrases; capitalize for display.
	r := []rune(cleaned)
	r[0] = unicode.ToUpper(r[0])
	label := prefix + ": " + string(r)
	if !evidence.IsAcceptable(label) {
		return "", false
	}
	return label, true
}

// VisionResultToFacts converts one validated batch result into facts,
// normalized to the same schema and cleaner rules as text extraction.
func VisionResultToFacts(result VisionPageResult, defaultPage int) []facts.Fact {
	var out []facts.Fact

	for _, raw := range result.TraitsDo {
		if label, ok := normalizePrefixed(raw, "Do"); ok {
			out = append(out, facts.Fact{
				Type:     facts.FactTraitDo,
				Label:    label,
				Evidence: visionEvidence(result, defaultPage, label),
			})
		}
	}
	for _, raw := range result.TraitsDont {
		if label, ok := normalizePrefixed(raw, "Don't"); ok {
			out = append(out, facts.Fact{
				Type:     facts.FactTraitDont,
				Label:    label,
				Evidence: visionEvidence(result, defaultPage, label),
			})
		}
	}
	for _, d := range result.Drivers {
		label := evidence.NormalizeWhitespace(d.Label)
		if label == "" {
			continue
		}
		out = append(out, facts.Fact{
			Type:     facts.FactDriver,
			Label:    label,
			Evidence: visionEvidence(result, defaultPage, label),
			Score:    d.Score,
		})
	}
	for _, raw := range result.Risks {
		cleaned, ok := evidence.PrepareForDisplay(strings.TrimSpace(raw), evidence.MaxSnippetLen)
		if !ok {
			continue
		}
		out = append(out, facts.Fact{
			Type:     facts.FactRisk,
			Label:    cleaned,
			Evidence: visionEvidence(result, defaultPage, cleaned),
		})
	}
	return out
}
