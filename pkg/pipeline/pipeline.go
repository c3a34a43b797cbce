// Package pipeline orchestrates the full document flow: upload, fact
// extraction (text or vision), append-only persistence, graph merge, and the
// derived read models (signals, fits, context packs, chat, templates).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitgraph/backend/internal/util"
	"github.com/fitgraph/backend/pkg/advisor"
	"github.com/fitgraph/backend/pkg/ai"
	"github.com/fitgraph/backend/pkg/chat"
	"github.com/fitgraph/backend/pkg/contextpack"
	"github.com/fitgraph/backend/pkg/extract"
	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/fit"
	"github.com/fitgraph/backend/pkg/graph"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/signals"
	"github.com/fitgraph/backend/pkg/store"
	"github.com/fitgraph/backend/pkg/templates"
)

// VisionBatchPages is how many rendered pages go into one vision request.
const VisionBatchPages = 3

// visionBatchTries bounds attempts per vision batch before it is skipped.
const visionBatchTries = 2

// graphCacheTTL bounds how stale a cached graph may get between writes from
// another process sharing the data directory.
const graphCacheTTL = 5 * time.Second

// VisionUnavailableMessage is surfaced when the vision path is requested but
// no vision backend is configured.
const VisionUnavailableMessage = "Vision extraction is not configured. Set up an Ollama vision model or upload a text-based PDF."

// FitKind selects which archetype set to rank.
type FitKind string

const (
	FitCareer   FitKind = "career"
	FitBusiness FitKind = "business"
)

// ErrUnknownFitKind is returned for fit kinds other than career or business.
var ErrUnknownFitKind = errors.New("unknown fit kind")

// ErrUnknownTemplate is returned for template kinds the renderer doesn't know.
var ErrUnknownTemplate = errors.New("unknown template kind")

// ProcessResult reports one upload's outcome.
type ProcessResult struct {
	DocID        string           `json:"doc_id"`
	Duplicate    bool             `json:"duplicate"`
	UploadPath   string           `json:"upload_path,omitempty"`
	Extraction   facts.Extraction `json:"extraction"`
	GraphUpdated bool             `json:"graph_updated"`
	EdgesAdded   int              `json:"edges_added"`
}

// FitResult is a ranked archetype list plus the signal-sufficiency verdict.
type FitResult struct {
	Scores           []fit.Score `json:"scores"`
	NotEnoughSignals bool        `json:"not_enough_signals"`
}

// Params wires a Service. Vision and TextGen may be nil; the null
// implementations are substituted so the deterministic path always works.
type Params struct {
	Store              *store.Store
	Graphs             *graph.Manager
	Extractor          *facts.Extractor
	Vision             ai.VisionExtractor
	TextGen            ai.TextGenerator
	CareerArchetypes   []fit.Archetype
	BusinessArchetypes []fit.Archetype
	Rules              []contextpack.Rule
	Seeds              []contextpack.SeedClient
}

// Service is the application core behind the HTTP surface.
type Service struct {
	st       *store.Store
	graphs   *graph.Manager
	extract  *facts.Extractor
	vision   ai.VisionExtractor
	textGen  ai.TextGenerator
	career   []fit.Archetype
	business []fit.Archetype
	rules    []contextpack.Rule
	seeds    []contextpack.SeedClient

	sf    singleflight.Group
	cache *graphCache
}

func NewService(p Params) *Service {
	if p.Extractor == nil {
		p.Extractor = facts.NewExtractor()
	}
	if p.Vision == nil {
		p.Vision = ai.NullVisionExtractor{}
	}
	if p.TextGen == nil {
		p.TextGen = ai.NullTextGenerator{}
	}
	return &Service{
		st:       p.Store,
		graphs:   p.Graphs,
		extract:  p.Extractor,
		vision:   p.Vision,
		textGen:  p.TextGen,
		career:   p.CareerArchetypes,
		business: p.BusinessArchetypes,
		rules:    p.Rules,
		seeds:    p.Seeds,
		cache:    newGraphCache(graphCacheTTL),
	}
}

// Store exposes the persistence layer for read-only listings.
func (s *Service) Store() *store.Store { return s.st }

// Graph returns the current graph, deduplicating concurrent loads and
// serving a short-lived cache between them.
func (s *Service) Graph() (*graph.Graph, error) {
	if g, ok := s.cache.get(); ok {
		return g, nil
	}
	v, err, _ := s.sf.Do("graph", func() (any, error) {
		g, err := s.graphs.Load()
		if err != nil {
			return nil, err
		}
		s.cache.put(g)
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graph.Graph), nil
}

// ProcessDocument runs the full upload flow. Re-uploads of content the client
// already has are reported as duplicates and change nothing.
func (s *Service) ProcessDocument(
	ctx context.Context,
	clientName string,
	filename string,
	pdfBytes []byte,
	useVision bool,
) (*ProcessResult, error) {
	docID := store.DocIDFromBytes(pdfBytes)

	dup, err := s.st.ClientHasDoc(clientName, docID)
	if err != nil {
		return nil, err
	}
	if dup {
		logger.Info("document already processed for client", "client", clientName, "doc_id", docID)
		return &ProcessResult{DocID: docID, Duplicate: true}, nil
	}

	uploadPath, err := s.st.SaveUpload(clientName, filename, pdfBytes)
	if err != nil {
		return nil, err
	}

	var extraction facts.Extraction
	if useVision {
		extraction = s.visionExtraction(ctx, clientName, docID, pdfBytes)
	} else {
		extraction = s.extract.ExtractFacts(clientName, docID, pdfBytes)
	}

	result := &ProcessResult{
		DocID:      docID,
		UploadPath: uploadPath,
		Extraction: extraction,
	}
	if len(extraction.Facts) == 0 {
		// Nothing usable: the upload stays on disk for retry, the log and
		// index are untouched so the same bytes can be re-processed.
		return result, nil
	}

	if err := s.st.AppendFacts(clientName, docID, extraction.Facts); err != nil {
		return nil, err
	}

	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	result.EdgesAdded = g.MergeFacts(clientName, docID, extraction.Facts)
	if err := s.graphs.Save(g); err != nil {
		return nil, err
	}
	s.cache.put(g)

	if err := s.st.RegisterProcessedDoc(clientName, docID, uploadPath, len(extraction.Facts), true); err != nil {
		return nil, err
	}
	result.GraphUpdated = true

	logger.Info("document processed",
		"client", clientName,
		"doc_id", docID,
		"facts", len(extraction.Facts),
		"edges_added", result.EdgesAdded,
		"vision", useVision,
	)
	return result, nil
}

// visionExtraction renders the PDF to page images and extracts facts in
// batches of VisionBatchPages. One failed batch degrades that batch only.
func (s *Service) visionExtraction(ctx context.Context, clientName, docID string, pdfBytes []byte) facts.Extraction {
	failed := func(message string) facts.Extraction {
		return facts.Extraction{
			ClientName:        clientName,
			DocID:             docID,
			Facts:             []facts.Fact{},
			ExtractionStatus:  extract.StatusFailed,
			FactsCountByType:  map[string]int{},
			ExtractionMessage: message,
		}
	}

	images, err := extract.RenderPages(ctx, pdfBytes)
	if err != nil {
		logger.Warn("page rendering failed", "client", clientName, "doc_id", docID, "err", err)
		return failed(fmt.Sprintf("Could not render PDF pages: %v", err))
	}

	collected, err := s.collectVisionFacts(ctx, clientName, docID, images)
	if errors.Is(err, ai.ErrUnavailable) {
		return failed(VisionUnavailableMessage)
	}

	extraction := facts.Extraction{
		ClientName:         clientName,
		DocID:              docID,
		Facts:              dedupeAndCap(collected),
		PagesWithTextCount: len(images),
		ExtractionStatus:   extract.StatusOK,
	}
	if len(extraction.Facts) == 0 {
		extraction.ExtractionStatus = extract.StatusFailed
		extraction.ExtractionMessage = "Vision extraction produced no usable facts."
	}
	extraction.FactsCountByType = countByType(extraction.Facts)
	return extraction
}

// collectVisionFacts walks the rendered pages in VisionBatchPages-sized
// batches. A batch that errors is skipped; an unavailable backend aborts.
func (s *Service) collectVisionFacts(ctx context.Context, clientName, docID string, images [][]byte) ([]facts.Fact, error) {
	var collected []facts.Fact
	for start := 0; start < len(images); start += VisionBatchPages {
		end := start + VisionBatchPages
		if end > len(images) {
			end = len(images)
		}
		pageNumbers := make([]int, 0, end-start)
		for p := start + 1; p <= end; p++ {
			pageNumbers = append(pageNumbers, p)
		}

		batch := images[start:end]
		result, err := util.RetryWithContext(ctx, visionBatchTries, func(ctx context.Context) (ai.VisionPageResult, error) {
			return s.vision.ExtractFromImages(ctx, pageNumbers, batch)
		})
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		if err != nil {
			logger.Warn("vision batch failed", "client", clientName, "doc_id", docID, "pages", pageNumbers, "err", err)
			continue
		}
		collected = append(collected, ai.VisionResultToFacts(result, pageNumbers[0])...)
	}
	return collected, nil
}

func dedupeAndCap(list []facts.Fact) []facts.Fact {
	out := make([]facts.Fact, 0, len(list))
	seen := map[string]struct{}{}
	for _, f := range list {
		key := string(f.Type) + "\x00" + f.Label
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
		if len(out) >= facts.MaxFactsPerDocument {
			break
		}
	}
	return out
}

func countByType(list []facts.Fact) map[string]int {
	out := make(map[string]int, 8)
	for _, f := range list {
		out[string(f.Type)]++
	}
	return out
}

// Insights returns the client's traits, drivers and risks from the graph.
func (s *Service) Insights(clientName string) (graph.ClientFacts, error) {
	g, err := s.Graph()
	if err != nil {
		return graph.ClientFacts{}, err
	}
	return g.ClientTraitsDriversRisks(clientName), nil
}

func recordsToFacts(records []store.FactRecord) []facts.Fact {
	out := make([]facts.Fact, 0, len(records))
	for _, rec := range records {
		out = append(out, facts.Fact{
			Type:     rec.Type,
			Label:    rec.Label,
			Evidence: rec.Evidence,
			Score:    rec.Score,
		})
	}
	return out
}

// Signals normalizes the client's full fact history into scored signals.
func (s *Service) Signals(clientName string) (signals.Set, error) {
	records, err := s.st.LoadFactsForClient(clientName, "")
	if err != nil {
		return nil, err
	}
	return signals.Normalize(recordsToFacts(records)), nil
}

// Fits ranks the requested archetype set against the client's signals.
func (s *Service) Fits(clientName string, kind FitKind, topN int) (FitResult, error) {
	var archetypes []fit.Archetype
	switch kind {
	case FitCareer:
		archetypes = s.career
	case FitBusiness:
		archetypes = s.business
	default:
		return FitResult{}, fmt.Errorf("%w: %q", ErrUnknownFitKind, kind)
	}

	set, err := s.Signals(clientName)
	if err != nil {
		return FitResult{}, err
	}
	return FitResult{
		Scores:           fit.ScoreArchetypes(set, archetypes, topN),
		NotEnoughSignals: !fit.HasSufficientSignals(set),
	}, nil
}

// ContextPack builds the bounded fact pack for the client.
func (s *Service) ContextPack(clientName string) (contextpack.Pack, error) {
	g, err := s.Graph()
	if err != nil {
		return contextpack.Pack{}, err
	}
	return contextpack.Build(g, clientName, s.rules, s.seeds), nil
}

// Advise answers a strategy question from the client's context pack.
func (s *Service) Advise(clientName, question string) (advisor.Advice, error) {
	pack, err := s.ContextPack(clientName)
	if err != nil {
		return advisor.Advice{}, err
	}
	return advisor.Advise(pack, question), nil
}

// Chat answers one of the supported client questions. With polish set, the
// configured text model rephrases the templated answer; failures fall back to
// the template output.
func (s *Service) Chat(ctx context.Context, clientName, businessType, question string, polish bool) (string, error) {
	set, err := s.Signals(clientName)
	if err != nil {
		return "", err
	}
	career := fit.ScoreArchetypes(set, s.career, fit.DefaultTopN)
	business := fit.ScoreArchetypes(set, s.business, fit.DefaultTopN)

	chatCtx := chat.BuildContext(set, career, business, clientName, businessType)
	answer := chat.Answer(question, chatCtx)
	if polish && answer != chat.FallbackMessage {
		answer = chat.PolishWithGenerator(ctx, s.textGen, answer)
	}
	return answer, nil
}

// RenderTemplate renders one of the deterministic artifacts: "call_plan",
// "summary" or "followup_email".
func (s *Service) RenderTemplate(clientName, kind, stage, profile, outcome string) (string, error) {
	set, err := s.Signals(clientName)
	if err != nil {
		return "", err
	}
	switch kind {
	case "call_plan":
		return templates.RenderCallPlan(set, stage, profile), nil
	case "summary":
		return templates.RenderClientSummary(set), nil
	case "followup_email":
		return templates.RenderFollowupEmail(set, outcome, clientName), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, kind)
	}
}
