package contextpack

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/fitgraph/backend/pkg/graph"
)

// SeedClient is one anonymized reference profile from the seed file.
type SeedClient struct {
	Name         string   `json:"name"`
	BusinessType string   `json:"business_type"`
	Traits       []string `json:"traits"`
	Drivers      []string `json:"drivers"`
	Risks        []string `json:"risks"`
}

// SimilarClient is one ranked match against the seed set.
type SimilarClient struct {
	Name         string  `json:"name"`
	BusinessType string  `json:"business_type"`
	WhySimilar   string  `json:"why_similar"`
	Score        float64 `json:"score"`
}

// LoadSeedClients reads the seed profile JSON file.
func LoadSeedClients(path string) ([]SeedClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed clients: %w", err)
	}
	var seeds []SeedClient
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed clients %s: %w", path, err)
	}
	return seeds, nil
}

// Common words excluded from similarity so matches reflect content, not
// phrasing.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "do": {}, "don't": {}, "for": {}, "from": {}, "in": {},
	"is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "the": {}, "their": {},
	"them": {}, "they": {}, "to": {}, "when": {}, "with": {},
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func termFrequencies(tokens []string) map[string]float64 {
	tf := map[string]float64{}
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for t, va := range a {
		normA += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clientText(cf graph.ClientFacts) string {
	var parts []string
	for _, group := range [][]graph.EntityFact{cf.Traits, cf.Drivers, cf.Risks} {
		for _, e := range group {
			parts = append(parts, strings.ToLower(e.Label))
		}
	}
	return strings.Join(parts, " ")
}

func seedText(s SeedClient) string {
	var parts []string
	parts = append(parts, s.Traits...)
	parts = append(parts, s.Drivers...)
	parts = append(parts, s.Risks...)
	return strings.ToLower(strings.Join(parts, " "))
}

// SimilarClients ranks seed profiles by term-frequency cosine similarity
// against the client's fact labels. Deterministic; ties keep seed file order.
func SimilarClients(cf graph.ClientFacts, seeds []SeedClient, topN int) []SimilarClient {
	if topN <= 0 {
		topN = MaxSimilarClients
	}
	out := []SimilarClient{}
	if len(seeds) == 0 {
		return out
	}

	queryTokens := tokenize(clientText(cf))
	if len(queryTokens) == 0 {
		return out
	}
	queryTF := termFrequencies(queryTokens)
	querySet := map[string]struct{}{}
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	type scored struct {
		client SimilarClient
		score  float64
	}
	var results []scored
	for _, seed := range seeds {
		tokens := tokenize(seedText(seed))
		score := cosine(queryTF, termFrequencies(tokens))
		if score <= 0 {
			continue
		}

		var overlap []string
		seen := map[string]struct{}{}
		for _, t := range tokens {
			if _, dup := seen[t]; dup {
				continue
			}
			if _, ok := querySet[t]; ok {
				overlap = append(overlap, t)
				seen[t] = struct{}{}
			}
		}
		sort.Strings(overlap)
		if len(overlap) > 5 {
			overlap = overlap[:5]
		}
		why := "similar profile"
		if len(overlap) > 0 {
			why = strings.Join(overlap, ", ")
		}

		results = append(results, scored{
			client: SimilarClient{
				Name:         seed.Name,
				BusinessType: seed.BusinessType,
				WhySimilar:   why,
				Score:        math.Round(score*1000) / 1000,
			},
			score: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	for i, r := range results {
		if i >= topN {
			break
		}
		out = append(out, r.client)
	}
	return out
}
