package signals

import (
	"testing"

	"github.com/fitgraph/backend/pkg/facts"
)

func TestMatchTags(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{
			name:  "single tag",
			label: "Do: Keep the team involved in planning.",
			want:  []string{"People-oriented"},
		},
		{
			name:  "driving force name",
			label: "Intellectual",
			want:  []string{"Big-picture thinker"},
		},
		{
			name:  "multiple tags one fact",
			label: "Prefers autonomy and variety over rigid procedure.",
			want: []string{
				"Autonomy-seeking",
				"Low tolerance for rigid rules",
				"Prefers risk-taking environments",
				"Avoid strict adherence to standards",
			},
		},
		{
			name:  "no match",
			label: "Enjoys long walks.",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchTags(tt.label)
			if len(got) != len(tt.want) {
				t.Fatalf("MatchTags(%q) = %v, want %v", tt.label, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("MatchTags(%q)[%d] = %q, want %q", tt.label, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	factList := []facts.Fact{
		{Type: facts.FactTraitDo, Label: "Do: Keep the team involved in planning.", Evidence: facts.Evidence{Page: 2, Snippet: "Do: Keep the team involved in planning."}},
		{Type: facts.FactTrait, Label: "Comfortable working with people daily.", Evidence: facts.Evidence{Page: 3, Snippet: "Comfortable working with people daily."}},
		{Type: facts.FactTrait, Label: "Strong people skills in group settings.", Evidence: facts.Evidence{Page: 4, Snippet: "Strong people skills in group settings."}},
		{Type: facts.FactTrait, Label: "Enjoys long walks.", Evidence: facts.Evidence{Page: 5, Snippet: "Enjoys long walks around the city after work."}},
	}

	set := Normalize(factList)

	sig := set["People-oriented"]
	if sig == nil {
		t.Fatal("People-oriented signal missing")
	}
	if sig.Score != 3 {
		t.Fatalf("score = %v, want 3 (one per contributing fact)", sig.Score)
	}
	if len(sig.Evidence) != MaxEvidencePerSignal {
		t.Fatalf("evidence = %d, want capped at %d", len(sig.Evidence), MaxEvidencePerSignal)
	}

	// Unmatched facts fall into the catch-all rather than being dropped.
	catchAll := set[CatchAllTag]
	if catchAll == nil || catchAll.Score != 1 {
		t.Fatalf("catch-all signal = %+v, want score 1", catchAll)
	}

	if set.TotalScore() != 4 {
		t.Fatalf("total score = %v, want 4", set.TotalScore())
	}
}

func TestNormalizeDropsUnacceptableEvidence(t *testing.T) {
	set := Normalize([]facts.Fact{
		{Type: facts.FactTrait, Label: "Works well with people.", Evidence: facts.Evidence{Page: 1, Snippet: "short frag"}},
	})
	sig := set["People-oriented"]
	if sig == nil || sig.Score != 1 {
		t.Fatalf("signal = %+v, want score 1", sig)
	}
	if len(sig.Evidence) != 0 {
		t.Fatalf("unacceptable evidence kept: %+v", sig.Evidence)
	}
}
