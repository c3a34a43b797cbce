// Package fit ranks archetype definitions against a client's normalized
// signals. Scoring is fully deterministic: identical signal input produces
// byte-identical output.
package fit

import (
	"math"
	"sort"
	"strings"

	"github.com/fitgraph/backend/pkg/evidence"
	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/signals"
)

const (
	// MaxEvidenceBullets caps evidence shown per archetype card.
	MaxEvidenceBullets = 2

	// MaxWatchOuts caps watch-out warnings per archetype card.
	MaxWatchOuts = 2

	// MinTotalSignalScore is the floor below which ranking archetypes against
	// near-empty input is misleading; callers present a "not enough clean
	// signals" state instead.
	MinTotalSignalScore = 3.0

	// DefaultTopN is the default result count.
	DefaultTopN = 5
)

// Score is one ranked archetype result.
type Score struct {
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Score              float64          `json:"score"`
	Rationale          string           `json:"rationale"`
	EvidenceUsed       []facts.Evidence `json:"evidence_used"`
	WatchOuts          []string         `json:"watch_outs"`
	RecommendedActions []string         `json:"recommended_actions"`
}

// HasSufficientSignals reports whether the signal set carries enough weight
// to rank archetypes meaningfully.
func HasSufficientSignals(set signals.Set) bool {
	return set.TotalScore() >= MinTotalSignalScore
}

type contribution struct {
	tag    string
	weight float64
}

func sortedTags(weights map[string]float64) []string {
	tags := make([]string, 0, len(weights))
	for tag := range weights {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ScoreArchetypes scores every archetype as
// sum(signal.score * requires_weight) - sum(signal.score * avoid_weight),
// ranks descending with declaration order breaking ties, and returns the top
// topN results with rationale, evidence and watch-outs attached.
func ScoreArchetypes(set signals.Set, archetypes []Archetype, topN int) []Score {
	if topN <= 0 {
		topN = DefaultTopN
	}

	scored := make([]Score, 0, len(archetypes))
	for _, arch := range archetypes {
		var pos, neg float64
		var contributing []contribution

		for _, tag := range sortedTags(arch.Requires) {
			w := arch.Requires[tag]
			sig := set[tag]
			if sig == nil {
				continue
			}
			pos += sig.Score * w
			if sig.Score > 0 {
				contributing = append(contributing, contribution{tag: tag, weight: sig.Score * w})
			}
		}

		var watchOutTags []string
		for _, tag := range sortedTags(arch.Avoid) {
			w := arch.Avoid[tag]
			sig := set[tag]
			if sig == nil {
				continue
			}
			neg += sig.Score * w
			if sig.Score > 0 {
				watchOutTags = append(watchOutTags, tag)
			}
		}

		// Top contributors by weighted contribution, tag name breaking ties.
		sort.SliceStable(contributing, func(i, j int) bool {
			if contributing[i].weight != contributing[j].weight {
				return contributing[i].weight > contributing[j].weight
			}
			return contributing[i].tag < contributing[j].tag
		})
		topTags := make([]string, 0, 3)
		for i, c := range contributing {
			if i >= 3 {
				break
			}
			topTags = append(topTags, c.tag)
		}

		rationale := "Limited signal match."
		if len(topTags) > 0 {
			rationale = "Why: " + strings.Join(topTags, "; ")
		}

		watchOuts := make([]string, 0, MaxWatchOuts)
		for i, tag := range watchOutTags {
			if i >= MaxWatchOuts {
				break
			}
			watchOuts = append(watchOuts, "Watch-out: "+tag+" — adjust approach")
		}

		scored = append(scored, Score{
			Name:               arch.Name,
			Description:        arch.Description,
			Score:              math.Round((pos-neg)*100) / 100,
			Rationale:          rationale,
			EvidenceUsed:       pickEvidence(set, topTags, MaxEvidenceBullets),
			WatchOuts:          watchOuts,
			RecommendedActions: arch.RecommendedActions,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// evidenceQuality rewards Do:/Don't: phrasing, concise length and terminal
// punctuation. Higher is better.
func evidenceQuality(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	score := 0
	if evidence.IsDoDont(s) {
		score += 50
	}
	switch n := len(s); {
	case n >= 20 && n <= 120:
		score += 20
	case n >= 18 && n <= 150:
		score += 10
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		score += 10
	}
	if strings.Count(s, "...") < 2 {
		score += 5
	}
	return score
}

type evidenceCandidate struct {
	quality int
	page    int
	snippet string
}

// pickEvidence collects the top tags' evidence, re-filters it through the
// cleaner, and returns the best maxBullets unique snippets sorted by quality
// descending then page ascending.
func pickEvidence(set signals.Set, topTags []string, maxBullets int) []facts.Evidence {
	var candidates []evidenceCandidate
	for _, tag := range topTags {
		sig := set[tag]
		if sig == nil {
			continue
		}
		for _, ev := range sig.Evidence {
			cleaned, ok := evidence.PrepareForDisplay(ev.Snippet, evidence.MaxSnippetLen)
			if !ok {
				continue
			}
			candidates = append(candidates, evidenceCandidate{
				quality: evidenceQuality(cleaned),
				page:    ev.Page,
				snippet: cleaned,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].quality != candidates[j].quality {
			return candidates[i].quality > candidates[j].quality
		}
		return candidates[i].page < candidates[j].page
	})

	out := make([]facts.Evidence, 0, maxBullets)
	seen := map[string]struct{}{}
	for _, c := range candidates {
		if len(out) >= maxBullets {
			break
		}
		key := strings.ToLower(c.snippet)
		if len(key) > 120 {
			key = key[:120]
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, facts.Evidence{Page: c.page, Snippet: c.snippet})
	}
	return out
}
