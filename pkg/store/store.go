// Package store persists facts and processing metadata on disk. The fact log
// is an append-only JSONL file and is the source of truth; everything else
// (client index, persisted graph) is derived and can be rebuilt from it.
package store

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/logger"
)

// MaxSlugLen bounds client slugs, matching the client node id cap.
const MaxSlugLen = 64

// FactRecord is one line of the fact log.
type FactRecord struct {
	ClientSlug        string         `json:"client_slug"`
	ClientDisplayName string         `json:"client_display_name"`
	DocID             string         `json:"doc_id"`
	Type              facts.FactType `json:"type"`
	Label             string         `json:"label"`
	Evidence          facts.Evidence `json:"evidence"`
	Score             int            `json:"score,omitempty"`
}

// ProcessedDoc is the per-document entry in a client's index.
type ProcessedDoc struct {
	UploadedPDFPath string `json:"uploaded_pdf_path"`
	ProcessedAt     string `json:"processed_at"`
	FactsCount      int    `json:"facts_count"`
	GraphUpdated    bool   `json:"graph_updated"`
}

// ClientIndex is the per-client idempotency index, one JSON file per client.
type ClientIndex struct {
	ClientSlug        string                  `json:"client_slug"`
	ClientDisplayName string                  `json:"client_display_name"`
	ProcessedDocs     map[string]ProcessedDoc `json:"processed_docs"`
}

// Store is the file-backed persistence layer. Safe for concurrent use within
// a single process; concurrent writers from multiple processes are not.
type Store struct {
	mu      sync.Mutex
	dataDir string
}

func New(dataDir string) (*Store, error) {
	for _, sub := range []string{"", "clients", "uploads"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &Store{dataDir: dataDir}, nil
}

// DocIDFromBytes derives the idempotency key for uploaded content: the first
// 32 hex characters of the sha256 of the raw bytes. Keyed on content, never
// on filename or timestamp, so accidental re-uploads are detected.
func DocIDFromBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:32]
}

// Slugify derives a stable filesystem- and node-id-safe slug from a client
// display name.
func Slugify(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if slug == "" {
		slug = "client"
	}
	if len(slug) > MaxSlugLen {
		slug = slug[:MaxSlugLen]
	}
	return slug
}

func (s *Store) factLogPath() string {
	return filepath.Join(s.dataDir, "facts.jsonl")
}

func (s *Store) indexPath(slug string) string {
	return filepath.Join(s.dataDir, "clients", slug+"_index.json")
}

// AppendFacts appends one record per fact to the fact log.
func (s *Store) AppendFacts(clientName, docID string, factList []facts.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.factLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open fact log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	slug := Slugify(clientName)
	for _, fact := range factList {
		rec := FactRecord{
			ClientSlug:        slug,
			ClientDisplayName: clientName,
			DocID:             docID,
			Type:              fact.Type,
			Label:             fact.Label,
			Evidence:          fact.Evidence,
			Score:             fact.Score,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal fact record: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write fact record: %w", err)
		}
	}
	return w.Flush()
}

func (s *Store) readFactLog(filter func(FactRecord) bool) ([]FactRecord, error) {
	f, err := os.Open(s.factLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []FactRecord{}, nil
		}
		return nil, fmt.Errorf("open fact log: %w", err)
	}
	defer f.Close()

	var out []FactRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec FactRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn or corrupt line must not make the whole log unreadable.
			logger.Warn("skipping corrupt fact log line", "line", lineNo, "err", err)
			continue
		}
		if filter == nil || filter(rec) {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fact log: %w", err)
	}
	return out, nil
}

// LoadFactsForClient returns the client's fact records, optionally restricted
// to one document when docID is non-empty.
func (s *Store) LoadFactsForClient(clientName, docID string) ([]FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slugify(clientName)
	return s.readFactLog(func(rec FactRecord) bool {
		if rec.ClientSlug != slug {
			return false
		}
		return docID == "" || rec.DocID == docID
	})
}

// LoadAllFacts returns every record in the fact log, in append order. This is
// the graph rebuild path.
func (s *Store) LoadAllFacts() ([]FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFactLog(nil)
}

func (s *Store) loadIndex(slug string) (ClientIndex, error) {
	idx := ClientIndex{ClientSlug: slug, ProcessedDocs: map[string]ProcessedDoc{}}
	data, err := os.ReadFile(s.indexPath(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return idx, fmt.Errorf("read client index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return ClientIndex{ClientSlug: slug, ProcessedDocs: map[string]ProcessedDoc{}},
			fmt.Errorf("parse client index: %w", err)
	}
	if idx.ProcessedDocs == nil {
		idx.ProcessedDocs = map[string]ProcessedDoc{}
	}
	return idx, nil
}

// ClientHasDoc reports whether the client's index already records docID. The
// lookup hits only the per-client index, never the full fact log.
func (s *Store) ClientHasDoc(clientName, docID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(Slugify(clientName))
	if err != nil {
		return false, err
	}
	_, ok := idx.ProcessedDocs[docID]
	return ok, nil
}

// RegisterProcessedDoc records a successfully processed document in the
// client's index, creating the index on first use.
func (s *Store) RegisterProcessedDoc(clientName, docID, uploadedPath string, factsCount int, graphUpdated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slugify(clientName)
	idx, err := s.loadIndex(slug)
	if err != nil {
		return err
	}
	idx.ClientDisplayName = clientName
	idx.ProcessedDocs[docID] = ProcessedDoc{
		UploadedPDFPath: uploadedPath,
		ProcessedAt:     time.Now().UTC().Format(time.RFC3339),
		FactsCount:      factsCount,
		GraphUpdated:    graphUpdated,
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal client index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(slug), data, 0o644); err != nil {
		return fmt.Errorf("write client index: %w", err)
	}
	return nil
}

// Index returns the client's index, empty if none exists yet.
func (s *Store) Index(clientName string) (ClientIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndex(Slugify(clientName))
}

// ListClients returns the display names of every client with an index,
// sorted by slug via directory order.
func (s *Store) ListClients() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dataDir, "clients"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list clients: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_index.json") {
			continue
		}
		slug := strings.TrimSuffix(e.Name(), "_index.json")
		idx, err := s.loadIndex(slug)
		if err != nil {
			logger.Warn("skipping unreadable client index", "slug", slug, "err", err)
			continue
		}
		name := idx.ClientDisplayName
		if name == "" {
			name = slug
		}
		names = append(names, name)
	}
	return names, nil
}

// SaveUpload persists raw uploaded bytes under the client's upload directory.
// Purely for audit and reprocessing; the pipeline never re-reads these files
// during normal operation.
func (s *Store) SaveUpload(clientName, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dataDir, "uploads", Slugify(clientName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	safe := Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	name := fmt.Sprintf("%s_%s.pdf", time.Now().UTC().Format("20060102T150405Z"), safe)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// DataDir exposes the store's root directory so sibling persistence (the
// graph file) can live next to the fact log.
func (s *Store) DataDir() string {
	return s.dataDir
}
