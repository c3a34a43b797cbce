package ai

import (
	"testing"

	"github.com/fitgraph/backend/pkg/facts"
)

func TestUnmarshalFlexible(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"standard json", `{"name": "test"}`, "test"},
		{"double encoded", `"{\"name\": \"test\"}"`, "test"},
		{"code fence", "```json\n{\"name\": \"test\"}\n```", "test"},
		{"malformed repaired", `{name: "test"}`, "test"},
		{"trailing comma", `{"name": "test",}`, "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out payload
			if err := UnmarshalFlexible(tt.input, &out); err != nil {
				t.Fatalf("UnmarshalFlexible: %v", err)
			}
			if out.Name != tt.want {
				t.Fatalf("name = %q, want %q", out.Name, tt.want)
			}
		})
	}

	var out payload
	if err := UnmarshalFlexible("not json at all {{{", &out); err == nil {
		t.Fatal("garbage input did not error")
	}
}

func TestVisionResultToFacts(t *testing.T) {
	result := VisionPageResult{
		TraitsDo:   []string{"keep conversations focused on outcomes", "Do: respect their independence fully"},
		TraitsDont: []string{"overload them with process detail"},
		Drivers:    []VisionDriver{{Label: "Intellectual", Score: 82}},
		Risks:      []string{"Tendency to postpone difficult decisions."},
		EvidenceQuotes: []VisionQuote{
			{Page: 4, Quote: "Keeps conversations focused on outcomes and next steps."},
		},
	}

	got := VisionResultToFacts(result, 4)
	if len(got) != 5 {
		t.Fatalf("facts = %d, want 5: %+v", len(got), got)
	}

	if got[0].Type != facts.FactTraitDo || got[0].Label != "Do: Keep conversations focused on outcomes." {
		t.Fatalf("first fact = %+v", got[0])
	}
	// An echoed "Do:" prefix is stripped before re-prefixing.
	if got[1].Label != "Do: Respect their independence fully." {
		t.Fatalf("second fact label = %q", got[1].Label)
	}
	if got[2].Type != facts.FactTraitDont || got[2].Label != "Don't: Overload them with process detail." {
		t.Fatalf("don't fact = %+v", got[2])
	}
	if got[3].Type != facts.FactDriver || got[3].Score != 82 {
		t.Fatalf("driver fact = %+v", got[3])
	}
	if got[0].Evidence.Page != 4 || got[0].Evidence.Snippet == "" {
		t.Fatalf("evidence not attached: %+v", got[0].Evidence)
	}
}

func TestVisionResultToFactsEmpty(t *testing.T) {
	if got := VisionResultToFacts(VisionPageResult{}, 1); len(got) != 0 {
		t.Fatalf("empty result produced facts: %+v", got)
	}
}
