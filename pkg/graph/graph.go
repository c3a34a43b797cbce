// Package graph holds the client knowledge graph: a directed multigraph
// linking clients to traits, drivers, risks and source documents. The graph
// is a derived projection of the fact log and can always be rebuilt from it.
package graph

import (
	"strings"

	"github.com/fitgraph/backend/pkg/facts"
	"github.com/fitgraph/backend/pkg/store"
)

// Node types.
const (
	TypeClient   = "Client"
	TypeTrait    = "Trait"
	TypeDriver   = "Driver"
	TypeRisk     = "Risk"
	TypeAction   = "Action"
	TypeDocument = "Document"
)

// Edge relations.
const (
	RelHasTrait          = "has_trait"
	RelHasDriver         = "has_driver"
	RelHasRisk           = "has_risk"
	RelEvidenceFrom      = "evidence_from"
	RelRecommendedAction = "recommended_action"
)

// DefaultConfidence is attached to extracted-fact edges. Extraction is
// heuristic, so edges never claim certainty.
const DefaultConfidence = 0.8

// MaxEntityIDLen bounds non-client node id label parts.
const MaxEntityIDLen = 200

// Node is one graph node. ID is a deterministic function of (type, label) so
// repeated facts with the same label always land on the same node.
type Node struct {
	ID       string
	NodeType string
	Label    string
}

// Edge is one directed edge with provenance. Parallel edges between the same
// pair are permitted: the same trait can be evidenced by multiple pages.
type Edge struct {
	Source     string
	Target     string
	Relation   string
	DocID      string
	Page       int
	Snippet    string
	Confidence float64
}

// Graph is an in-memory directed multigraph. Node insertion order is kept so
// queries and serialization stay deterministic.
type Graph struct {
	nodes     map[string]Node
	nodeOrder []string
	edges     []Edge
}

func New() *Graph {
	return &Graph{nodes: map[string]Node{}}
}

// ClientNodeID derives the deterministic node id for a client name.
func ClientNodeID(clientName string) string {
	return TypeClient + ":" + store.Slugify(clientName)
}

// EntityNodeID derives the deterministic node id for a labelled entity.
func EntityNodeID(nodeType, label string) string {
	if len(label) > MaxEntityIDLen {
		label = label[:MaxEntityIDLen]
	}
	return nodeType + ":" + label
}

// AddNode upserts a node. Attributes overwrite on re-add; safe because node
// ids are deterministic in (type, label).
func (g *Graph) AddNode(n Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.nodes[n.ID] = n
}

func (g *Graph) AddEdge(e Edge) {
	g.edges = append(g.edges, e)
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// factTarget maps a fact type onto its graph entity type, edge relation and
// display label. Communication do/don't facts fold into traits and risks so
// the graph query surface stays three-pronged.
func factTarget(factType facts.FactType, label string) (nodeType, relation, nodeLabel string) {
	switch factType {
	case facts.FactDriver:
		return TypeDriver, RelHasDriver, label
	case facts.FactRisk, facts.FactRisksDont:
		return TypeRisk, RelHasRisk, label
	case facts.FactCommunicationDont:
		if !strings.HasPrefix(label, "Don't:") {
			label = "Don't: " + label
		}
		return TypeRisk, RelHasRisk, label
	case facts.FactCommunicationDo:
		if !strings.HasPrefix(label, "Do:") {
			label = "Do: " + label
		}
		return TypeTrait, RelHasTrait, label
	default:
		// trait, trait_do, trait_dont, strengths_do
		return TypeTrait, RelHasTrait, label
	}
}

// MergeFacts merges one document's facts into the graph: upsert the client
// and entity nodes, add a typed provenance edge per fact, and a parallel
// evidence_from edge to the source document node. Returns the number of
// edges added.
func (g *Graph) MergeFacts(clientName, docID string, factList []facts.Fact) int {
	if len(factList) == 0 {
		return 0
	}

	clientID := ClientNodeID(clientName)
	g.AddNode(Node{ID: clientID, NodeType: TypeClient, Label: clientName})

	docNodeID := EntityNodeID(TypeDocument, docID)
	g.AddNode(Node{ID: docNodeID, NodeType: TypeDocument, Label: docID})

	added := 0
	for _, f := range factList {
		nodeType, relation, label := factTarget(f.Type, f.Label)
		entityID := EntityNodeID(nodeType, label)
		g.AddNode(Node{ID: entityID, NodeType: nodeType, Label: label})

		g.AddEdge(Edge{
			Source:     clientID,
			Target:     entityID,
			Relation:   relation,
			DocID:      docID,
			Page:       f.Evidence.Page,
			Snippet:    f.Evidence.Snippet,
			Confidence: DefaultConfidence,
		})
		g.AddEdge(Edge{
			Source:     clientID,
			Target:     docNodeID,
			Relation:   RelEvidenceFrom,
			DocID:      docID,
			Page:       f.Evidence.Page,
			Snippet:    f.Evidence.Snippet,
			Confidence: DefaultConfidence,
		})
		added += 2
	}
	return added
}

// MergeRecords replays fact-log records into the graph. This is the rebuild
// path; records group themselves by (client, doc) through their fields.
func (g *Graph) MergeRecords(records []store.FactRecord) {
	for _, rec := range records {
		g.MergeFacts(rec.ClientDisplayName, rec.DocID, []facts.Fact{{
			Type:     rec.Type,
			Label:    rec.Label,
			Evidence: rec.Evidence,
			Score:    rec.Score,
		}})
	}
}

// EvidenceRef is one provenance tuple attached to an entity.
type EvidenceRef struct {
	DocID      string  `json:"doc_id"`
	Page       int     `json:"page"`
	Snippet    string  `json:"snippet"`
	Confidence float64 `json:"confidence"`
}

// EntityFact is one trait/driver/risk with its accumulated evidence.
type EntityFact struct {
	Label    string        `json:"label"`
	Evidence []EvidenceRef `json:"evidence"`
}

// ClientFacts groups a client's entities by kind.
type ClientFacts struct {
	Traits  []EntityFact `json:"traits"`
	Drivers []EntityFact `json:"drivers"`
	Risks   []EntityFact `json:"risks"`
}

// Total returns the number of entities across all three groups.
func (c ClientFacts) Total() int {
	return len(c.Traits) + len(c.Drivers) + len(c.Risks)
}

// ClientTraitsDriversRisks collects the client's entities with evidence
// merged across parallel edges, in first-seen order.
func (g *Graph) ClientTraitsDriversRisks(clientName string) ClientFacts {
	clientID := ClientNodeID(clientName)

	type bucket struct {
		nodeType string
		fact     *EntityFact
	}
	byTarget := map[string]*bucket{}
	var order []string

	for _, e := range g.edges {
		if e.Source != clientID {
			continue
		}
		if e.Relation != RelHasTrait && e.Relation != RelHasDriver && e.Relation != RelHasRisk {
			continue
		}
		node, ok := g.nodes[e.Target]
		if !ok {
			continue
		}
		b, seen := byTarget[e.Target]
		if !seen {
			b = &bucket{nodeType: node.NodeType, fact: &EntityFact{Label: node.Label}}
			byTarget[e.Target] = b
			order = append(order, e.Target)
		}
		b.fact.Evidence = append(b.fact.Evidence, EvidenceRef{
			DocID:      e.DocID,
			Page:       e.Page,
			Snippet:    e.Snippet,
			Confidence: e.Confidence,
		})
	}

	var out ClientFacts
	for _, id := range order {
		b := byTarget[id]
		switch b.nodeType {
		case TypeDriver:
			out.Drivers = append(out.Drivers, *b.fact)
		case TypeRisk:
			out.Risks = append(out.Risks, *b.fact)
		default:
			out.Traits = append(out.Traits, *b.fact)
		}
	}
	return out
}

// ClientSubgraph returns the client node, every node it points at, and the
// connecting edges.
func (g *Graph) ClientSubgraph(clientName string) ([]Node, []Edge) {
	clientID := ClientNodeID(clientName)
	if !g.HasNode(clientID) {
		return nil, nil
	}

	var edges []Edge
	keep := map[string]struct{}{clientID: {}}
	for _, e := range g.edges {
		if e.Source != clientID && e.Target != clientID {
			continue
		}
		edges = append(edges, e)
		keep[e.Source] = struct{}{}
		keep[e.Target] = struct{}{}
	}

	var nodes []Node
	for _, id := range g.nodeOrder {
		if _, ok := keep[id]; ok {
			nodes = append(nodes, g.nodes[id])
		}
	}
	return nodes, edges
}
