package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/store"
)

const graphFileName = "graph.graphml"

// Manager loads and saves the persisted graph next to the fact log. The
// graph file is a cache: when it is missing, empty or unreadable the graph
// is rebuilt wholesale from the fact log, never treated as a hard failure.
type Manager struct {
	mu   sync.Mutex
	st   *store.Store
	path string
}

func NewManager(st *store.Store) *Manager {
	return &Manager{
		st:   st,
		path: filepath.Join(st.DataDir(), graphFileName),
	}
}

// Load returns the persisted graph, rebuilding from the fact log when the
// file is absent or corrupt.
func (m *Manager) Load() (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return m.rebuild("graph file missing")
		}
		return nil, fmt.Errorf("read graph file: %w", err)
	}

	g, err := DecodeGraphML(data)
	if err != nil {
		logger.Warn("persisted graph unreadable, rebuilding from fact log", "err", err)
		return m.rebuild("graph file corrupt")
	}
	if g.NodeCount() == 0 {
		return m.rebuild("graph file empty")
	}
	return g, nil
}

func (m *Manager) rebuild(reason string) (*Graph, error) {
	records, err := m.st.LoadAllFacts()
	if err != nil {
		return nil, fmt.Errorf("rebuild graph from fact log: %w", err)
	}
	g := New()
	g.MergeRecords(records)
	if len(records) > 0 {
		logger.Info("graph rebuilt from fact log", "reason", reason, "records", len(records), "nodes", g.NodeCount())
	}
	return g, nil
}

// Save rewrites the persisted graph wholesale.
func (m *Manager) Save(g *Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := EncodeGraphML(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write graph file: %w", err)
	}
	return nil
}

// Path returns the graph file location, for diagnostics.
func (m *Manager) Path() string {
	return m.path
}
