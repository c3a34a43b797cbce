package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fitgraph/backend/pkg/ai"
	"github.com/fitgraph/backend/pkg/chat"
	"github.com/fitgraph/backend/pkg/extract"
	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/fit"
	"github.com/fitgraph/backend/pkg/graph"
	"github.com/fitgraph/backend/pkg/store"
)

type stubBackend struct {
	pages []extract.Page
}

func (stubBackend) Name() string { return "stub" }

func (b stubBackend) ExtractPages([]byte) ([]extract.Page, error) {
	return b.pages, nil
}

func padding() string {
	line := "The content of this page is described elsewhere in the report.\n"
	return strings.Repeat(line, 40)
}

func reportPages() []extract.Page {
	return []extract.Page{
		{Page: 1, Text: padding()},
		{Page: 3, Text: "Do: Respect their need for independence.\nDon't: Micromanage their daily schedule.\n" + padding()},
	}
}

func testArchetypes() []fit.Archetype {
	return []fit.Archetype{
		{
			Name:               "Consultant",
			Description:        "Independent advisory work.",
			Requires:           map[string]float64{"Autonomy-seeking": 2},
			RecommendedActions: []string{"Shadow a consultant for a day."},
		},
		{
			Name:     "Coordinator",
			Requires: map[string]float64{"Process-oriented": 1},
		},
	}
}

func newTestService(t *testing.T, pages []extract.Page) *Service {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	textExtractor := extract.NewExtractorWithBackends(stubBackend{pages: pages}, stubBackend{pages: pages})
	return NewService(Params{
		Store:              st,
		Graphs:             graph.NewManager(st),
		Extractor:          facts.NewExtractorWithText(textExtractor),
		CareerArchetypes:   testArchetypes(),
		BusinessArchetypes: testArchetypes()[:1],
	})
}

func TestProcessDocument(t *testing.T) {
	s := newTestService(t, reportPages())
	pdf := []byte("%PDF-1.4 fixture one")

	result, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if result.Duplicate {
		t.Fatal("first upload reported as duplicate")
	}
	if len(result.Extraction.Facts) == 0 {
		t.Fatalf("no facts extracted: %+v", result.Extraction)
	}
	if !result.GraphUpdated || result.EdgesAdded == 0 {
		t.Fatalf("graph not updated: %+v", result)
	}

	has, err := s.Store().ClientHasDoc("Jane Doe", result.DocID)
	if err != nil || !has {
		t.Fatalf("document not registered: has=%v err=%v", has, err)
	}

	insights, err := s.Insights("Jane Doe")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if insights.Total() == 0 {
		t.Fatal("insights empty after processing")
	}
}

func TestProcessDocumentDuplicate(t *testing.T) {
	s := newTestService(t, reportPages())
	pdf := []byte("%PDF-1.4 fixture one")

	first, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false)
	if err != nil {
		t.Fatalf("first ProcessDocument: %v", err)
	}
	second, err := s.ProcessDocument(context.Background(), "Jane Doe", "report-copy.pdf", pdf, false)
	if err != nil {
		t.Fatalf("second ProcessDocument: %v", err)
	}
	if !second.Duplicate || second.DocID != first.DocID {
		t.Fatalf("re-upload not detected: %+v", second)
	}

	records, err := s.Store().LoadFactsForClient("Jane Doe", "")
	if err != nil {
		t.Fatalf("LoadFactsForClient: %v", err)
	}
	if len(records) != len(first.Extraction.Facts) {
		t.Fatalf("duplicate upload changed the fact log: %d records, want %d", len(records), len(first.Extraction.Facts))
	}

	// Same bytes for a different client are not a duplicate.
	third, err := s.ProcessDocument(context.Background(), "John Smith", "report.pdf", pdf, false)
	if err != nil {
		t.Fatalf("third ProcessDocument: %v", err)
	}
	if third.Duplicate {
		t.Fatal("other client's upload reported as duplicate")
	}
}

func TestProcessDocumentNoFacts(t *testing.T) {
	s := newTestService(t, []extract.Page{{Page: 1, Text: padding()}})
	pdf := []byte("%PDF-1.4 featureless")

	result, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if result.GraphUpdated {
		t.Fatal("graph updated with zero facts")
	}
	has, err := s.Store().ClientHasDoc("Jane Doe", result.DocID)
	if err != nil {
		t.Fatalf("ClientHasDoc: %v", err)
	}
	if has {
		t.Fatal("failed extraction registered as processed; retry would be blocked")
	}
}

type stubVision struct {
	batches [][]int
	result  ai.VisionPageResult
	err     error
}

func (v *stubVision) ExtractFromImages(_ context.Context, pageNumbers []int, _ [][]byte) (ai.VisionPageResult, error) {
	v.batches = append(v.batches, append([]int{}, pageNumbers...))
	return v.result, v.err
}

func TestCollectVisionFactsBatches(t *testing.T) {
	s := newTestService(t, reportPages())
	vision := &stubVision{
		result: ai.VisionPageResult{
			TraitsDo: []string{"keep conversations focused on outcomes"},
		},
	}
	s.vision = vision

	images := make([][]byte, 7)
	got, err := s.collectVisionFacts(context.Background(), "Jane Doe", "doc1", images)
	if err != nil {
		t.Fatalf("collectVisionFacts: %v", err)
	}

	wantBatches := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}
	if len(vision.batches) != len(wantBatches) {
		t.Fatalf("batches = %v", vision.batches)
	}
	for i, want := range wantBatches {
		if len(vision.batches[i]) != len(want) || vision.batches[i][0] != want[0] {
			t.Fatalf("batch %d = %v, want %v", i, vision.batches[i], want)
		}
	}

	// One identical fact per batch collapses to one after dedupe.
	if len(dedupeAndCap(got)) != 1 {
		t.Fatalf("deduped facts = %d, want 1", len(dedupeAndCap(got)))
	}
}

func TestCollectVisionFactsUnavailable(t *testing.T) {
	s := newTestService(t, reportPages())

	_, err := s.collectVisionFacts(context.Background(), "Jane Doe", "doc1", make([][]byte, 2))
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestCollectVisionFactsSkipsFailedBatch(t *testing.T) {
	s := newTestService(t, reportPages())
	s.vision = &stubVision{err: errors.New("model timeout")}

	got, err := s.collectVisionFacts(context.Background(), "Jane Doe", "doc1", make([][]byte, 2))
	if err != nil {
		t.Fatalf("collectVisionFacts: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("facts from failed batches: %+v", got)
	}
}

func TestFits(t *testing.T) {
	s := newTestService(t, reportPages())
	pdf := []byte("%PDF-1.4 fixture one")
	if _, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	result, err := s.Fits("Jane Doe", FitCareer, 0)
	if err != nil {
		t.Fatalf("Fits: %v", err)
	}
	if len(result.Scores) == 0 || result.Scores[0].Name != "Consultant" {
		t.Fatalf("scores = %+v", result.Scores)
	}

	if _, err := s.Fits("Jane Doe", FitKind("lifestyle"), 0); !errors.Is(err, ErrUnknownFitKind) {
		t.Fatalf("unknown kind err = %v", err)
	}
}

func TestChat(t *testing.T) {
	s := newTestService(t, reportPages())
	pdf := []byte("%PDF-1.4 fixture one")
	if _, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	answer, err := s.Chat(context.Background(), "Jane Doe", "", "Which career fits me best?", false)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(answer, "**Best career fit:** Consultant.") {
		t.Fatalf("answer = %q", answer)
	}

	// Polish falls back to the template when no text model is configured.
	polished, err := s.Chat(context.Background(), "Jane Doe", "", "Which career fits me best?", true)
	if err != nil {
		t.Fatalf("Chat polish: %v", err)
	}
	if polished != answer {
		t.Fatalf("polish without model changed answer:\n%s\n---\n%s", polished, answer)
	}

	fallback, err := s.Chat(context.Background(), "Jane Doe", "", "Tell me a joke", false)
	if err != nil {
		t.Fatalf("Chat fallback: %v", err)
	}
	if fallback != chat.FallbackMessage {
		t.Fatalf("fallback = %q", fallback)
	}
}

func TestRenderTemplate(t *testing.T) {
	s := newTestService(t, reportPages())
	pdf := []byte("%PDF-1.4 fixture one")
	if _, err := s.ProcessDocument(context.Background(), "Jane Doe", "report.pdf", pdf, false); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	plan, err := s.RenderTemplate("Jane Doe", "call_plan", "discovery", "", "")
	if err != nil {
		t.Fatalf("call_plan: %v", err)
	}
	if !strings.Contains(plan, "## Call plan (20 min)") {
		t.Fatalf("plan = %q", plan)
	}

	email, err := s.RenderTemplate("Jane Doe", "followup_email", "", "", "We agreed on next steps.")
	if err != nil {
		t.Fatalf("followup_email: %v", err)
	}
	if !strings.Contains(email, "Hi Jane Doe,") {
		t.Fatalf("email = %q", email)
	}

	if _, err := s.RenderTemplate("Jane Doe", "poster", "", "", ""); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("unknown template err = %v", err)
	}
}

func TestGraphCacheExpiry(t *testing.T) {
	c := newGraphCache(time.Second)
	current := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	if _, ok := c.get(); ok {
		t.Fatal("empty cache returned a graph")
	}

	g := graph.New()
	c.put(g)
	if got, ok := c.get(); !ok || got != g {
		t.Fatal("cache miss immediately after put")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.get(); ok {
		t.Fatal("cache served an expired graph")
	}

	fresh := graph.New()
	c.put(fresh)
	if got, ok := c.get(); !ok || got != fresh {
		t.Fatal("put after expiry did not refresh the cache")
	}
}
