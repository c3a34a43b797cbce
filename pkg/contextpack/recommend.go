package contextpack

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/fitgraph/backend/pkg/graph"
)

// RuleTriggers lists label substrings per fact kind that fire a rule.
type RuleTriggers struct {
	Trait  []string `yaml:"trait"`
	Driver []string `yaml:"driver"`
	Risk   []string `yaml:"risk"`
}

// Rule is one externally authored coaching rule.
type Rule struct {
	Action   string       `yaml:"action" validate:"required"`
	Why      string       `yaml:"why"`
	Triggers RuleTriggers `yaml:"triggers"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules" validate:"required,dive"`
}

// LoadRules reads and validates the rules YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return file.Rules, nil
}

// Recommendation is one rule-derived coaching action with the fact that
// triggered it.
type Recommendation struct {
	Action      string            `json:"action"`
	Why         string            `json:"why"`
	Evidence    []EvidenceSnippet `json:"evidence"`
	TriggeredBy string            `json:"triggered_by"`
}

func matchesTrigger(label string, triggers []string) bool {
	if label == "" {
		return false
	}
	lower := strings.ToLower(label)
	for _, t := range triggers {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func firstMatch(entities []graph.EntityFact, triggers []string, kind string) (string, []EvidenceSnippet, bool) {
	for _, e := range entities {
		if !matchesTrigger(e.Label, triggers) {
			continue
		}
		var ev []EvidenceSnippet
		if len(e.Evidence) > 0 {
			ev = []EvidenceSnippet{{
				DocID:   e.Evidence[0].DocID,
				Page:    e.Evidence[0].Page,
				Snippet: truncateSnippet(e.Evidence[0].Snippet),
			}}
		}
		return kind + ": " + e.Label, ev, true
	}
	return "", nil, false
}

// Recommend evaluates rules against the client's facts in declaration order.
// Traits are checked before drivers before risks; the first matching fact
// provides the evidence. Duplicate actions are dropped.
func Recommend(rules []Rule, cf graph.ClientFacts, maxN int) []Recommendation {
	if maxN <= 0 {
		maxN = MaxRecommendations
	}
	out := make([]Recommendation, 0, maxN)
	seenActions := map[string]struct{}{}

	for _, rule := range rules {
		if len(out) >= maxN {
			break
		}

		triggeredBy, ev, ok := firstMatch(cf.Traits, rule.Triggers.Trait, "Trait")
		if !ok {
			triggeredBy, ev, ok = firstMatch(cf.Drivers, rule.Triggers.Driver, "Driver")
		}
		if !ok {
			triggeredBy, ev, ok = firstMatch(cf.Risks, rule.Triggers.Risk, "Risk")
		}
		if !ok {
			continue
		}

		action := strings.TrimSpace(rule.Action)
		if action == "" {
			continue
		}
		if _, dup := seenActions[action]; dup {
			continue
		}
		seenActions[action] = struct{}{}

		if ev == nil {
			ev = []EvidenceSnippet{}
		}
		out = append(out, Recommendation{
			Action:      action,
			Why:         strings.TrimSpace(rule.Why),
			Evidence:    ev,
			TriggeredBy: triggeredBy,
		})
	}
	return out
}
