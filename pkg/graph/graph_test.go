package graph

import (
	"os"
	"testing"

	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/store"
)

func sampleFacts() []facts.Fact {
	return []facts.Fact{
		{Type: facts.FactTraitDo, Label: "Do: People-oriented.", Evidence: facts.Evidence{Page: 3, Snippet: "Do: People-oriented."}},
		{Type: facts.FactDriver, Label: "Intellectual", Evidence: facts.Evidence{Page: 5, Snippet: "Driving forces: Intellectual (82)."}, Score: 82},
		{Type: facts.FactRisksDont, Label: "Avoid committing this person to rigid plans.", Evidence: facts.Evidence{Page: 7, Snippet: "Avoid committing this person to rigid plans."}},
		{Type: facts.FactCommunicationDo, Label: "Be clear and direct when presenting ideas.", Evidence: facts.Evidence{Page: 2, Snippet: "Be clear and direct when presenting ideas."}},
	}
}

func TestMergeFacts(t *testing.T) {
	g := New()
	added := g.MergeFacts("Jane Doe", "doc-1", sampleFacts())

	// One typed edge plus one evidence_from edge per fact.
	if added != 8 {
		t.Fatalf("edges added = %d, want 8", added)
	}
	// Client + document + 4 entities.
	if g.NodeCount() != 6 {
		t.Fatalf("nodes = %d, want 6", g.NodeCount())
	}

	cf := g.ClientTraitsDriversRisks("Jane Doe")
	if len(cf.Traits) != 2 || len(cf.Drivers) != 1 || len(cf.Risks) != 1 {
		t.Fatalf("traits/drivers/risks = %d/%d/%d, want 2/1/1", len(cf.Traits), len(cf.Drivers), len(cf.Risks))
	}
	// communication_do folds into a Do:-prefixed trait.
	found := false
	for _, tr := range cf.Traits {
		if tr.Label == "Do: Be clear and direct when presenting ideas." {
			found = true
		}
	}
	if !found {
		t.Fatalf("communication_do not folded into trait: %+v", cf.Traits)
	}
	if cf.Drivers[0].Evidence[0].Confidence != DefaultConfidence {
		t.Fatalf("confidence = %v", cf.Drivers[0].Evidence[0].Confidence)
	}
}

func TestRepeatedLabelsReuseNodes(t *testing.T) {
	g := New()
	g.MergeFacts("Jane Doe", "doc-1", sampleFacts())
	before := g.NodeCount()

	// Second document with an overlapping trait: node count must not grow for
	// the shared label, only for the new document node.
	g.MergeFacts("Jane Doe", "doc-2", sampleFacts()[:1])
	if g.NodeCount() != before+1 {
		t.Fatalf("nodes = %d, want %d (only the new document node)", g.NodeCount(), before+1)
	}

	cf := g.ClientTraitsDriversRisks("Jane Doe")
	for _, tr := range cf.Traits {
		if tr.Label == "Do: People-oriented." && len(tr.Evidence) != 2 {
			t.Fatalf("shared trait evidence = %d, want 2 (one per document)", len(tr.Evidence))
		}
	}
}

func TestClientSubgraph(t *testing.T) {
	g := New()
	g.MergeFacts("Jane Doe", "doc-1", sampleFacts())
	g.MergeFacts("Bob", "doc-9", sampleFacts()[:1])

	nodes, edges := g.ClientSubgraph("Jane Doe")
	for _, n := range nodes {
		if n.ID == ClientNodeID("Bob") {
			t.Fatal("subgraph leaked another client")
		}
	}
	if len(edges) != 8 {
		t.Fatalf("subgraph edges = %d, want 8", len(edges))
	}

	if nodes, _ := g.ClientSubgraph("Nobody"); nodes != nil {
		t.Fatal("unknown client should yield an empty subgraph")
	}
}

func TestGraphMLRoundTrip(t *testing.T) {
	g := New()
	g.MergeFacts("Jane Doe", "doc-1", sampleFacts())

	data, err := EncodeGraphML(g)
	if err != nil {
		t.Fatalf("EncodeGraphML: %v", err)
	}
	decoded, err := DecodeGraphML(data)
	if err != nil {
		t.Fatalf("DecodeGraphML: %v", err)
	}

	if decoded.NodeCount() != g.NodeCount() || decoded.EdgeCount() != g.EdgeCount() {
		t.Fatalf("round trip lost structure: %d/%d nodes, %d/%d edges",
			decoded.NodeCount(), g.NodeCount(), decoded.EdgeCount(), g.EdgeCount())
	}

	want := g.ClientTraitsDriversRisks("Jane Doe")
	got := decoded.ClientTraitsDriversRisks("Jane Doe")
	if got.Total() != want.Total() {
		t.Fatalf("round trip changed query results: %d vs %d", got.Total(), want.Total())
	}
	if got.Drivers[0].Evidence[0].Page != 5 || got.Drivers[0].Evidence[0].Snippet == "" {
		t.Fatalf("edge attributes not preserved: %+v", got.Drivers[0].Evidence[0])
	}
}

func TestLegacyIDMigration(t *testing.T) {
	legacy := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <graph edgedefault="directed">
    <node id="client:jane_doe">
      <data key="d_node_type">client</data>
      <data key="d_label">Jane Doe</data>
    </node>
    <node id="trait:Do: People-oriented.">
      <data key="d_node_type">trait</data>
      <data key="d_label">Do: People-oriented.</data>
    </node>
    <edge source="client:jane_doe" target="trait:Do: People-oriented.">
      <data key="d_relation">has_trait</data>
      <data key="d_doc_id">doc-1</data>
      <data key="d_page">3</data>
      <data key="d_snippet">Do: People-oriented.</data>
      <data key="d_confidence">0.8</data>
    </edge>
  </graph>
</graphml>`)

	g, err := DecodeGraphML(legacy)
	if err != nil {
		t.Fatalf("DecodeGraphML: %v", err)
	}
	if !g.HasNode("Client:jane_doe") {
		t.Fatal("legacy client id not migrated")
	}
	if g.HasNode("client:jane_doe") {
		t.Fatal("legacy id survived migration")
	}

	cf := g.ClientTraitsDriversRisks("Jane Doe")
	if len(cf.Traits) != 1 {
		t.Fatalf("migrated graph not queryable: %+v", cf)
	}
}

func TestManagerLoadRebuildsFromLog(t *testing.T) {
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if err := st.AppendFacts("Jane Doe", "doc-1", sampleFacts()); err != nil {
		t.Fatalf("AppendFacts: %v", err)
	}

	m := NewManager(st)

	// No graph file yet: load must rebuild from the log.
	g, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.NodeCount() != 6 {
		t.Fatalf("rebuilt nodes = %d, want 6", g.NodeCount())
	}

	if err := m.Save(g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := m.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.EdgeCount() != g.EdgeCount() {
		t.Fatalf("reloaded edges = %d, want %d", reloaded.EdgeCount(), g.EdgeCount())
	}

	// Corrupt file: load falls back to rebuild instead of failing.
	if err := os.WriteFile(m.Path(), []byte("not xml at all"), 0o644); err != nil {
		t.Fatalf("corrupt graph file: %v", err)
	}
	g, err = m.Load()
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if g.NodeCount() != 6 {
		t.Fatalf("rebuild after corruption: nodes = %d, want 6", g.NodeCount())
	}
}
