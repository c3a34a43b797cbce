// Package extract renders PDF bytes into per-page plain text. Two
// interchangeable text backends are provided (direct text layer and a
// layout-aware poppler pass) plus a raster renderer for scanned documents.
package extract

import (
	"errors"

	"github.com/fitgraph/backend/pkg/logger"
)

// MinTotalChars is the floor below which a backend's output is considered
// unusable, signalling a likely scanned/image PDF.
const MinTotalChars = 1500

// ErrTextExtractionFailed indicates that no backend produced a usable text
// layer. This is a terminal, user-facing condition and is not retried.
var ErrTextExtractionFailed = errors.New("text extraction failed: no usable text layer found")

// Page is one page of extracted text, 1-based.
type Page struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Status describes which extraction path produced the pages.
type Status string

const (
	StatusOK           Status = "ok"
	StatusFallbackUsed Status = "fallback_used"
	StatusFailed       Status = "text_extraction_failed"
)

// Backend extracts per-page text from PDF bytes.
type Backend interface {
	Name() string
	ExtractPages(pdfBytes []byte) ([]Page, error)
}

// Extractor tries a primary backend and falls back to a secondary one when
// the primary yields too little text.
type Extractor struct {
	primary   Backend
	secondary Backend
}

// NewExtractor builds the default extractor: text-layer first, poppler second.
func NewExtractor() *Extractor {
	return &Extractor{
		primary:   &TextLayerBackend{},
		secondary: &PopplerBackend{},
	}
}

// NewExtractorWithBackends builds an extractor from explicit backends.
// Used by tests to substitute fakes.
func NewExtractorWithBackends(primary, secondary Backend) *Extractor {
	return &Extractor{primary: primary, secondary: secondary}
}

// TotalChars sums the text length over all pages.
func TotalChars(pages []Page) int {
	total := 0
	for _, p := range pages {
		total += len(p.Text)
	}
	return total
}

// PagesWithText counts pages whose text is non-empty.
func PagesWithText(pages []Page) int {
	count := 0
	for _, p := range pages {
		if len(p.Text) > 0 {
			count++
		}
	}
	return count
}

// ExtractTextByPage extracts per-page text, trying the primary backend first
// and the secondary when the primary's total character count falls below
// MinTotalChars. If both fall below the floor, it returns
// ErrTextExtractionFailed; the raster path (RenderPages) is an explicit
// alternate for scanned documents, never an automatic retry.
func (e *Extractor) ExtractTextByPage(pdfBytes []byte) ([]Page, Status, error) {
	pages, err := e.primary.ExtractPages(pdfBytes)
	if err == nil && TotalChars(pages) >= MinTotalChars {
		return pages, StatusOK, nil
	}
	if err != nil {
		logger.Debug("primary text backend failed", "backend", e.primary.Name(), "err", err)
	} else {
		logger.Debug("primary text backend below char floor", "backend", e.primary.Name(), "chars", TotalChars(pages))
	}

	fallbackPages, fallbackErr := e.secondary.ExtractPages(pdfBytes)
	if fallbackErr == nil && TotalChars(fallbackPages) >= MinTotalChars {
		return fallbackPages, StatusFallbackUsed, nil
	}

	// Neither backend met the floor. Prefer whichever produced more text so
	// the caller can still report page counts in diagnostics.
	best := pages
	if TotalChars(fallbackPages) > TotalChars(best) {
		best = fallbackPages
	}
	return best, StatusFailed, ErrTextExtractionFailed
}
