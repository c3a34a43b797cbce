package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextLayerBackend reads the PDF text layer directly, page by page.
// Pure Go, no external binaries.
type TextLayerBackend struct{}

func (b *TextLayerBackend) Name() string {
	return "textlayer"
}

func (b *TextLayerBackend) ExtractPages(pdfBytes []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Page: i, Text: ""})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single damaged page should not sink the document.
			pages = append(pages, Page{Page: i, Text: ""})
			continue
		}
		pages = append(pages, Page{Page: i, Text: text})
	}
	return pages, nil
}
