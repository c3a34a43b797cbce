package fit

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/signals"
)

func testSignals() signals.Set {
	return signals.Set{
		"Autonomy-seeking": {
			Score: 3,
			Evidence: []facts.Evidence{
				{Page: 4, Snippet: "Do: Respect their need for independence."},
				{Page: 6, Snippet: "Prefers working at their own pace without supervision."},
			},
		},
		"People-oriented": {
			Score: 2,
			Evidence: []facts.Evidence{
				{Page: 3, Snippet: "Do: People-oriented."},
			},
		},
		"Detail-oriented": {Score: 1},
	}
}

func TestScoreArchetypesWeightedSum(t *testing.T) {
	set := signals.Set{"Autonomy-seeking": {Score: 3}}
	arch := []Archetype{{
		Name:     "Founder",
		Requires: map[string]float64{"Autonomy-seeking": 2},
	}}

	got := ScoreArchetypes(set, arch, 5)
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if got[0].Score != 6.0 {
		t.Fatalf("score = %v, want 6.0", got[0].Score)
	}
	if got[0].Rationale != "Why: Autonomy-seeking" {
		t.Fatalf("rationale = %q", got[0].Rationale)
	}
}

func TestScoreArchetypesAvoidPenalty(t *testing.T) {
	set := testSignals()
	arch := []Archetype{{
		Name:     "Compliance Officer",
		Requires: map[string]float64{"Detail-oriented": 2},
		Avoid:    map[string]float64{"Autonomy-seeking": 1.5},
	}}

	got := ScoreArchetypes(set, arch, 5)
	// 1*2 - 3*1.5 = -2.5
	if got[0].Score != -2.5 {
		t.Fatalf("score = %v, want -2.5", got[0].Score)
	}
	if len(got[0].WatchOuts) != 1 {
		t.Fatalf("watch-outs = %v, want 1 entry", got[0].WatchOuts)
	}
	if got[0].WatchOuts[0] != "Watch-out: Autonomy-seeking — adjust approach" {
		t.Fatalf("watch-out = %q", got[0].WatchOuts[0])
	}
}

func TestScoreArchetypesRankingAndTies(t *testing.T) {
	set := testSignals()
	arch := []Archetype{
		{Name: "A", Requires: map[string]float64{"People-oriented": 1}},
		{Name: "B", Requires: map[string]float64{"Autonomy-seeking": 1}},
		{Name: "C", Requires: map[string]float64{"People-oriented": 1}},
	}

	got := ScoreArchetypes(set, arch, 2)
	if len(got) != 2 {
		t.Fatalf("topN not applied: %d results", len(got))
	}
	if got[0].Name != "B" {
		t.Fatalf("top result = %q, want B", got[0].Name)
	}
	// A and C tie at 2.0; declaration order must win.
	if got[1].Name != "A" {
		t.Fatalf("tie broken against declaration order: %q", got[1].Name)
	}
}

func TestScoreArchetypesDeterministic(t *testing.T) {
	set := testSignals()
	arch := []Archetype{{
		Name: "Founder",
		Requires: map[string]float64{
			"Autonomy-seeking": 2,
			"People-oriented":  1,
			"Detail-oriented":  1,
		},
		Avoid: map[string]float64{"Security / stability-seeking": 1},
	}}

	first := ScoreArchetypes(set, arch, 5)
	for i := 0; i < 10; i++ {
		if got := ScoreArchetypes(set, arch, 5); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n%+v\nvs\n%+v", i, got, first)
		}
	}
}

func TestPickEvidencePrefersDoDont(t *testing.T) {
	set := testSignals()
	got := ScoreArchetypes(set, []Archetype{{
		Name:     "Founder",
		Requires: map[string]float64{"Autonomy-seeking": 2, "People-oriented": 1},
	}}, 5)

	ev := got[0].EvidenceUsed
	if len(ev) == 0 || len(ev) > MaxEvidenceBullets {
		t.Fatalf("evidence = %d entries", len(ev))
	}
	// Do:/Don't: snippets outrank plain sentences; equal quality falls back
	// to page order.
	if ev[0].Snippet != "Do: People-oriented." {
		t.Fatalf("top evidence = %q", ev[0].Snippet)
	}
	if ev[1].Snippet != "Do: Respect their need for independence." {
		t.Fatalf("second evidence = %q", ev[1].Snippet)
	}
}

func TestHasSufficientSignals(t *testing.T) {
	if HasSufficientSignals(signals.Set{}) {
		t.Fatal("empty set reported sufficient")
	}
	if !HasSufficientSignals(testSignals()) {
		t.Fatal("populated set reported insufficient")
	}
}

func TestLoadArchetypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "career.yaml")
	content := `archetypes:
  - name: Founder
    description: Builds things from scratch.
    requires:
      Autonomy-seeking: 2
      Prefers risk-taking environments: 2
    avoid:
      Security / stability-seeking: 1
    recommended_actions:
      - Discuss ownership structure early.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	archetypes, err := LoadArchetypes(path)
	if err != nil {
		t.Fatalf("LoadArchetypes: %v", err)
	}
	if len(archetypes) != 1 || archetypes[0].Name != "Founder" {
		t.Fatalf("unexpected archetypes: %+v", archetypes)
	}
	if archetypes[0].Requires["Autonomy-seeking"] != 2 {
		t.Fatalf("weights not parsed: %+v", archetypes[0].Requires)
	}

	if err := os.WriteFile(path, []byte("archetypes:\n  - description: nameless\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := LoadArchetypes(path); err == nil {
		t.Fatal("archetype without name passed validation")
	}
}
