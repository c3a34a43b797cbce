package facts

import (
	"strings"

	"github.com/fitgraph/backend/pkg/extract"
	"github.com/fitgraph/backend/pkg/logger"
)

// ScannedPDFMessage is surfaced when no text layer could be read.
const ScannedPDFMessage = "No text layer found. This appears to be a scanned image PDF; upload a text-based PDF or use the vision path."

// Extractor runs the layered fact extraction over extracted page text.
type Extractor struct {
	text *extract.Extractor
}

func NewExtractor() *Extractor {
	return &Extractor{text: extract.NewExtractor()}
}

func NewExtractorWithText(text *extract.Extractor) *Extractor {
	return &Extractor{text: text}
}

// ExtractFacts extracts per-page text from PDF bytes and runs the fact
// strategies over it. A failed text extraction still returns a complete
// Extraction report with status and message set, never a nil result.
func (e *Extractor) ExtractFacts(clientName, docID string, pdfBytes []byte) Extraction {
	pages, status, err := e.text.ExtractTextByPage(pdfBytes)
	if err != nil {
		logger.Warn("text extraction failed", "client", clientName, "doc_id", docID, "err", err)
		return Extraction{
			ClientName:          clientName,
			DocID:               docID,
			Facts:               []Fact{},
			TotalCharsExtracted: extract.TotalChars(pages),
			PagesWithTextCount:  extract.PagesWithText(pages),
			ExtractionStatus:    status,
			FactsCountByType:    map[string]int{},
			ExtractionMessage:   ScannedPDFMessage,
		}
	}
	return e.ExtractFromPages(clientName, docID, pages, status)
}

// ExtractFromPages runs the strategies over already-extracted pages. Facts
// are collected per strategy tier, de-duplicated on lowercased label, and
// capped at MaxFactsPerDocument with higher tiers kept preferentially.
func (e *Extractor) ExtractFromPages(clientName, docID string, pages []extract.Page, status extract.Status) Extraction {
	var counters pageCounters
	tiers := make([][]Fact, tierCount)

	for _, p := range pages {
		tiers[tierDoDont] = append(tiers[tierDoDont], extractDoDontLines(p, &counters)...)
		tiers[tierHeadedBullets] = append(tiers[tierHeadedBullets], extractHeadedBullets(p, &counters)...)
		tiers[tierDriverScores] = append(tiers[tierDriverScores], extractDriverScores(p)...)
		tiers[tierPhrasePatterns] = append(tiers[tierPhrasePatterns], extractPhrasePatterns(p)...)
	}

	facts := mergeTiers(tiers)
	if len(facts) == 0 {
		facts = dedupe(extractFallbackBullets(pages))
		if len(facts) > MaxFactsPerDocument {
			facts = facts[:MaxFactsPerDocument]
		}
	}

	logger.Debug("fact extraction finished",
		"client", clientName,
		"doc_id", docID,
		"facts", len(facts),
		"headings", counters.headings,
		"bullets", counters.bullets,
	)

	return Extraction{
		ClientName:          clientName,
		DocID:               docID,
		Facts:               facts,
		TotalCharsExtracted: extract.TotalChars(pages),
		PagesWithTextCount:  extract.PagesWithText(pages),
		ExtractionStatus:    status,
		HeadingsFound:       counters.headings,
		BulletsFound:        counters.bullets,
		DoLinesFoundCount:   counters.doLines,
		DontLinesFoundCount: counters.dontLines,
		FactsCountByType:    countByType(facts),
	}
}

// mergeTiers flattens strategy output in priority order, de-duplicating on
// lowercased label and enforcing the per-document cap.
func mergeTiers(tiers [][]Fact) []Fact {
	out := make([]Fact, 0, MaxFactsPerDocument)
	seen := make(map[string]struct{})
	for _, tier := range tiers {
		for _, f := range tier {
			key := strings.ToLower(f.Label)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
			if len(out) >= MaxFactsPerDocument {
				return out
			}
		}
	}
	return out
}

func dedupe(facts []Fact) []Fact {
	out := make([]Fact, 0, len(facts))
	seen := make(map[string]struct{})
	for _, f := range facts {
		key := strings.ToLower(f.Label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
