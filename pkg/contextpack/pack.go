// Package contextpack builds bounded, fact-only views over the graph for
// grounding downstream text generation. Caps keep any prompt built from a
// pack at a fixed, small upper size regardless of how much was extracted.
package contextpack

import (
	"github.com/fitgraph/backend/pkg/evidence"
	"github.com/fitgraph/backend/pkg/graph"
)

const (
	// MaxFactsTotal caps traits+drivers+risks in one pack.
	MaxFactsTotal = 12

	// MaxEvidencePerFact caps snippets per fact entry.
	MaxEvidencePerFact = 2

	// MaxSnippetLen caps each snippet in a pack.
	MaxSnippetLen = 240

	// MaxRecommendations caps rule-derived actions.
	MaxRecommendations = 5

	// MaxSimilarClients caps the similar-client list.
	MaxSimilarClients = 3

	maxLabelLen = 200
)

// EvidenceSnippet is one bounded citation inside a pack.
type EvidenceSnippet struct {
	DocID   string `json:"doc_id,omitempty"`
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// FactEntry is one trait/driver/risk with capped evidence.
type FactEntry struct {
	Label    string            `json:"label"`
	Evidence []EvidenceSnippet `json:"evidence"`
}

// Pack is the bounded context handed to any text-generation collaborator.
type Pack struct {
	ClientName      string           `json:"client_name"`
	Traits          []FactEntry      `json:"traits"`
	Drivers         []FactEntry      `json:"drivers"`
	Risks           []FactEntry      `json:"risks"`
	Recommendations []Recommendation `json:"recommendations"`
	SimilarClients  []SimilarClient  `json:"similar_clients"`
}

// FactCount returns traits+drivers+risks, the capped quantity.
func (p Pack) FactCount() int {
	return len(p.Traits) + len(p.Drivers) + len(p.Risks)
}

// Empty reports whether the pack carries no facts at all.
func (p Pack) Empty() bool {
	return p.FactCount() == 0
}

func truncateSnippet(s string) string {
	return evidence.Truncate(s, MaxSnippetLen)
}

func factEntry(ef graph.EntityFact) FactEntry {
	entry := FactEntry{Label: ef.Label, Evidence: []EvidenceSnippet{}}
	if len(entry.Label) > maxLabelLen {
		entry.Label = entry.Label[:maxLabelLen]
	}
	for i, ev := range ef.Evidence {
		if i >= MaxEvidencePerFact {
			break
		}
		if ev.Snippet == "" {
			continue
		}
		entry.Evidence = append(entry.Evidence, EvidenceSnippet{
			DocID:   ev.DocID,
			Page:    ev.Page,
			Snippet: truncateSnippet(ev.Snippet),
		})
	}
	return entry
}

func factEntries(efs []graph.EntityFact) []FactEntry {
	out := make([]FactEntry, 0, len(efs))
	for _, ef := range efs {
		out = append(out, factEntry(ef))
	}
	return out
}

// Build assembles a pack for the client from the graph plus reference data.
// An unknown client yields an empty but well-formed pack.
func Build(g *graph.Graph, clientName string, rules []Rule, seeds []SeedClient) Pack {
	pack := Pack{
		ClientName:      clientName,
		Traits:          []FactEntry{},
		Drivers:         []FactEntry{},
		Risks:           []FactEntry{},
		Recommendations: []Recommendation{},
		SimilarClients:  []SimilarClient{},
	}
	if !g.HasNode(graph.ClientNodeID(clientName)) {
		return pack
	}

	cf := g.ClientTraitsDriversRisks(clientName)
	pack.Traits = factEntries(cf.Traits)
	pack.Drivers = factEntries(cf.Drivers)
	pack.Risks = factEntries(cf.Risks)

	// Cap total facts, traits first, then drivers, then risks.
	if pack.FactCount() > MaxFactsTotal {
		if len(pack.Traits) > MaxFactsTotal {
			pack.Traits = pack.Traits[:MaxFactsTotal]
		}
		remaining := MaxFactsTotal - len(pack.Traits)
		if len(pack.Drivers) > remaining {
			pack.Drivers = pack.Drivers[:remaining]
		}
		remaining -= len(pack.Drivers)
		if len(pack.Risks) > remaining {
			pack.Risks = pack.Risks[:remaining]
		}
	}

	pack.Recommendations = Recommend(rules, cf, MaxRecommendations)
	pack.SimilarClients = SimilarClients(cf, seeds, MaxSimilarClients)
	return pack
}
