// Package signals maps free-text fact labels onto a fixed vocabulary of
// canonical signal tags. Deterministic, no model involved. Scores are
// additive fact counts; evidence is re-cleaned and capped per tag.
package signals

import (
	"strings"

	"github.com/fitgraph/backend/pkg/evidence"
	"github.com/fitgraph/backend/pkg/facts"
)

// Tags is the canonical signal vocabulary.
var Tags = []string{
	"People-oriented",
	"Big-picture thinker",
	"Autonomy-seeking",
	"Persuasive / influence",
	"Competitive / challenge-driven",
	"Low tolerance for rigid rules",
	"Prefers risk-taking environments",
	"Avoid strict diplomacy environments",
	"Avoid strict adherence to standards",
	"Needs clear decisions (yes/no closure)",
	"Detail-oriented",
	"Security / stability-seeking",
	"Creative / flexible",
	"Relationship-focused",
	"Impact / helping-driven",
}

// CatchAllTag absorbs facts that match no known phrase. Every fact must
// count toward something or archetype scoring silently loses signal.
const CatchAllTag = "Relationship-focused"

// MaxEvidencePerSignal caps stored evidence per tag.
const MaxEvidencePerSignal = 2

type phraseTag struct {
	phrase string
	tag    string
}

// phraseTable maps lowercased label substrings to tags, in match-priority
// order. A fact may contribute to several tags; within one tag the first
// matching phrase wins.
var phraseTable = []phraseTag{
	{"people", "People-oriented"},
	{"team", "People-oriented"},
	{"relationship", "People-oriented"},
	{"communicat", "People-oriented"},
	{"collaborat", "People-oriented"},
	{"connect", "People-oriented"},
	{"helping others", "People-oriented"},
	{"recognition", "People-oriented"},
	{"impact", "People-oriented"},

	{"big picture", "Big-picture thinker"},
	{"vision", "Big-picture thinker"},
	{"strategic", "Big-picture thinker"},
	{"concept", "Big-picture thinker"},
	{"overview", "Big-picture thinker"},

	{"autonomy", "Autonomy-seeking"},
	{"independence", "Autonomy-seeking"},
	{"self-directed", "Autonomy-seeking"},
	{"control", "Autonomy-seeking"},
	{"own pace", "Autonomy-seeking"},
	{"freedom", "Autonomy-seeking"},

	{"persuad", "Persuasive / influence"},
	{"influence", "Persuasive / influence"},
	{"convinc", "Persuasive / influence"},
	{"lead", "Persuasive / influence"},
	{"negotiat", "Persuasive / influence"},

	{"competit", "Competitive / challenge-driven"},
	{"challenge", "Competitive / challenge-driven"},
	{"win", "Competitive / challenge-driven"},
	{"achievement", "Competitive / challenge-driven"},
	{"goal-oriented", "Competitive / challenge-driven"},

	{"rigid", "Low tolerance for rigid rules"},
	{"rules", "Low tolerance for rigid rules"},
	{"bureaucrac", "Low tolerance for rigid rules"},
	{"flexibility", "Low tolerance for rigid rules"},
	{"flexible", "Low tolerance for rigid rules"},
	{"structure", "Low tolerance for rigid rules"},

	{"risk", "Prefers risk-taking environments"},
	{"entrepreneur", "Prefers risk-taking environments"},
	{"innov", "Prefers risk-taking environments"},
	{"variety", "Prefers risk-taking environments"},
	{"change", "Prefers risk-taking environments"},

	{"avoid conflict", "Avoid strict diplomacy environments"},
	{"conflict", "Avoid strict diplomacy environments"},
	{"diplomac", "Avoid strict diplomacy environments"},
	{"politic", "Avoid strict diplomacy environments"},
	{"confrontation", "Avoid strict diplomacy environments"},

	{"avoid strict", "Avoid strict adherence to standards"},
	{"standards", "Avoid strict adherence to standards"},
	{"compliance", "Avoid strict adherence to standards"},
	{"procedure", "Avoid strict adherence to standards"},

	{"decision", "Needs clear decisions (yes/no closure)"},
	{"closure", "Needs clear decisions (yes/no closure)"},
	{"clear outcome", "Needs clear decisions (yes/no closure)"},
	{"yes or no", "Needs clear decisions (yes/no closure)"},
	{"deadline", "Needs clear decisions (yes/no closure)"},

	{"detail", "Detail-oriented"},
	{"analytical", "Detail-oriented"},
	{"data", "Detail-oriented"},
	{"accuracy", "Detail-oriented"},
	{"precision", "Detail-oriented"},

	{"security", "Security / stability-seeking"},
	{"stability", "Security / stability-seeking"},
	{"certainty", "Security / stability-seeking"},
	{"predictab", "Security / stability-seeking"},
	{"guarantee", "Security / stability-seeking"},

	{"creative", "Creative / flexible"},
	{"innovative", "Creative / flexible"},
	{"adapt", "Creative / flexible"},

	{"relationship-focused", "Relationship-focused"},
	{"people-focused", "Relationship-focused"},

	{"helping", "Impact / helping-driven"},
	{"impact-driven", "Impact / helping-driven"},
	{"purpose", "Impact / helping-driven"},

	// TTI driving-force names map straight onto signals.
	{"intellectual", "Big-picture thinker"},
	{"receptive", "People-oriented"},
	{"aesthetic", "Creative / flexible"},
	{"economic", "Competitive / challenge-driven"},
	{"individualistic", "Autonomy-seeking"},
	{"altruistic", "Impact / helping-driven"},
	{"regulatory", "Security / stability-seeking"},
	{"theoretical", "Big-picture thinker"},
	{"utilitarian", "Detail-oriented"},
}

// Signal is one normalized tag's aggregate.
type Signal struct {
	Score    float64          `json:"score"`
	Evidence []facts.Evidence `json:"evidence"`
}

// Set maps tag name to signal.
type Set map[string]*Signal

// MatchTags returns the tags matching a fact label, in table order.
func MatchTags(label string) []string {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for _, pt := range phraseTable {
		if _, dup := seen[pt.tag]; dup {
			continue
		}
		if strings.Contains(lower, pt.phrase) {
			out = append(out, pt.tag)
			seen[pt.tag] = struct{}{}
		}
	}
	return out
}

// Normalize maps facts onto signal tags. Each fact adds 1.0 to every tag it
// matches, falling back to the catch-all tag when nothing matches. Evidence
// is passed through the cleaner a second time and capped at
// MaxEvidencePerSignal entries per tag.
func Normalize(factList []facts.Fact) Set {
	out := Set{}
	for _, f := range factList {
		tags := MatchTags(f.Label)
		if len(tags) == 0 {
			tags = []string{CatchAllTag}
		}

		var ev *facts.Evidence
		if cleaned, ok := evidence.PrepareForDisplay(f.Evidence.Snippet, evidence.MaxSnippetLen); ok {
			ev = &facts.Evidence{Page: f.Evidence.Page, Snippet: cleaned}
		}

		for _, tag := range tags {
			sig, exists := out[tag]
			if !exists {
				sig = &Signal{}
				out[tag] = sig
			}
			sig.Score++
			if ev != nil && len(sig.Evidence) < MaxEvidencePerSignal {
				sig.Evidence = append(sig.Evidence, *ev)
			}
		}
	}
	return out
}

// TotalScore sums all signal scores, used for minimum-signal thresholds.
func (s Set) TotalScore() float64 {
	total := 0.0
	for _, sig := range s {
		total += sig.Score
	}
	return total
}
