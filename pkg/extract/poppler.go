package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const popplerTimeout = 30 * time.Second

// PopplerBackend shells out to pdftotext in layout mode. Layout mode keeps
// table and column structure readable, which the direct text layer often
// scrambles in TTI-style reports.
type PopplerBackend struct{}

func (b *PopplerBackend) Name() string {
	return "poppler"
}

func (b *PopplerBackend) ExtractPages(pdfBytes []byte) ([]Page, error) {
	tmpDir, err := os.MkdirTemp("", "pdfextract-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), popplerTimeout)
	defer cancel()

	// No -nopgbrk: the form feed page breaks are how we split pages.
	cmd := exec.CommandContext(
		ctx,
		"pdftotext",
		"-enc", "UTF-8",
		"-eol", "unix",
		"-layout",
		"-q",
		pdfPath,
		"-",
	)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")

	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("pdftotext timed out")
	}
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w: %s", err, bytes.TrimSpace(out))
	}

	return splitFormFeedPages(string(out)), nil
}

// splitFormFeedPages splits pdftotext output on form feed characters into
// 1-based pages. A trailing empty chunk after the final form feed is dropped.
func splitFormFeedPages(text string) []Page {
	chunks := strings.Split(text, "\f")
	if len(chunks) > 1 && strings.TrimSpace(chunks[len(chunks)-1]) == "" {
		chunks = chunks[:len(chunks)-1]
	}
	pages := make([]Page, 0, len(chunks))
	for i, chunk := range chunks {
		pages = append(pages, Page{Page: i + 1, Text: chunk})
	}
	return pages
}
