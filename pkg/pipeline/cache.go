package pipeline

import (
	"sync"
	"time"

	"github.com/fitgraph/backend/pkg/graph"
)

// graphCache holds the most recently loaded graph for a short window so read
// endpoints don't re-decode the GraphML file on every request. Writes refresh
// it with the merged graph directly.
type graphCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	g        *graph.Graph
	loadedAt time.Time
	now      func() time.Time
}

func newGraphCache(ttl time.Duration) *graphCache {
	return &graphCache{ttl: ttl, now: time.Now}
}

func (c *graphCache) get() (*graph.Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g == nil || c.now().Sub(c.loadedAt) > c.ttl {
		return nil, false
	}
	return c.g, true
}

func (c *graphCache) put(g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.g = g
	c.loadedAt = c.now()
}
