// Package facts turns per-page report text into a capped, de-duplicated list
// of typed, evidence-backed facts. Extraction is layered: each strategy runs
// in a documented priority order, with later strategies acting as
// intentionally lower-confidence fallbacks.
package facts

import "github.com/fitgraph/backend/pkg/extract"

// FactType discriminates the fact union.
type FactType string

const (
	FactTrait             FactType = "trait"
	FactDriver            FactType = "driver"
	FactRisk              FactType = "risk"
	FactTraitDo           FactType = "trait_do"
	FactTraitDont         FactType = "trait_dont"
	FactCommunicationDo   FactType = "communication_do"
	FactCommunicationDont FactType = "communication_dont"
	FactStrengthsDo       FactType = "strengths_do"
	FactRisksDont         FactType = "risks_dont"
)

// MaxFactsPerDocument caps extraction output. When the cap is hit, facts from
// higher-priority strategies are kept preferentially.
const MaxFactsPerDocument = 60

// MaxLabelLen bounds fact labels.
const MaxLabelLen = 200

// Evidence is the page-level citation every fact must carry.
type Evidence struct {
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// Fact is one extracted observation about a client. Immutable once written to
// the fact store.
type Fact struct {
	Type     FactType `json:"type"`
	Label    string   `json:"label"`
	Evidence Evidence `json:"evidence"`
	Score    int      `json:"score,omitempty"`
}

// Extraction is the full report of one extraction run.
type Extraction struct {
	ClientName          string         `json:"client_name"`
	DocID               string         `json:"doc_id"`
	Facts               []Fact         `json:"facts"`
	TotalCharsExtracted int            `json:"total_chars_extracted"`
	PagesWithTextCount  int            `json:"pages_with_text_count"`
	ExtractionStatus    extract.Status `json:"extraction_status"`
	HeadingsFound       int            `json:"headings_found"`
	BulletsFound        int            `json:"bullets_found"`
	DoLinesFoundCount   int            `json:"do_lines_found_count"`
	DontLinesFoundCount int            `json:"dont_lines_found_count"`
	FactsCountByType    map[string]int `json:"facts_count_by_type"`
	ExtractionMessage   string         `json:"extraction_message,omitempty"`
}

func countByType(facts []Fact) map[string]int {
	out := make(map[string]int, 8)
	for _, f := range facts {
		out[string(f.Type)]++
	}
	return out
}
