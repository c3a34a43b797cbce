package graph

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// GraphML attribute keys. The relation is stored as a plain edge attribute
// because GraphML edge keys are renumbered by some tools on reload.
const (
	keyNodeType   = "d_node_type"
	keyLabel      = "d_label"
	keyRelation   = "d_relation"
	keyDocID      = "d_doc_id"
	keyPage       = "d_page"
	keySnippet    = "d_snippet"
	keyConfidence = "d_confidence"
)

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type xmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlGraph struct {
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlDoc struct {
	XMLName xml.Name `xml:"graphml"`
	Xmlns   string   `xml:"xmlns,attr"`
	Keys    []xmlKey `xml:"key"`
	Graph   xmlGraph `xml:"graph"`
}

var graphmlKeys = []xmlKey{
	{ID: keyNodeType, For: "node", AttrName: "node_type", AttrType: "string"},
	{ID: keyLabel, For: "node", AttrName: "label", AttrType: "string"},
	{ID: keyRelation, For: "edge", AttrName: "relation", AttrType: "string"},
	{ID: keyDocID, For: "edge", AttrName: "doc_id", AttrType: "string"},
	{ID: keyPage, For: "edge", AttrName: "page", AttrType: "int"},
	{ID: keySnippet, For: "edge", AttrName: "snippet", AttrType: "string"},
	{ID: keyConfidence, For: "edge", AttrName: "confidence", AttrType: "double"},
}

// EncodeGraphML serializes the graph as GraphML with node/edge attributes.
func EncodeGraphML(g *Graph) ([]byte, error) {
	doc := xmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys:  graphmlKeys,
		Graph: xmlGraph{EdgeDefault: "directed"},
	}

	for _, n := range g.Nodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, xmlNode{
			ID: n.ID,
			Data: []xmlData{
				{Key: keyNodeType, Value: n.NodeType},
				{Key: keyLabel, Value: n.Label},
			},
		})
	}
	for _, e := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, xmlEdge{
			Source: e.Source,
			Target: e.Target,
			Data: []xmlData{
				{Key: keyRelation, Value: e.Relation},
				{Key: keyDocID, Value: e.DocID},
				{Key: keyPage, Value: strconv.Itoa(e.Page)},
				{Key: keySnippet, Value: e.Snippet},
				{Key: keyConfidence, Value: strconv.FormatFloat(e.Confidence, 'g', -1, 64)},
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graphml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func dataValue(data []xmlData, key string) string {
	for _, d := range data {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}

// legacyIDPrefixes is the v1→v2 node-id migration table: early graphs were
// persisted with lowercase type prefixes. Applied once on decode so old
// graph files stay queryable under the current id scheme.
var legacyIDPrefixes = map[string]string{
	"client:":   TypeClient + ":",
	"trait:":    TypeTrait + ":",
	"driver:":   TypeDriver + ":",
	"risk:":     TypeRisk + ":",
	"action:":   TypeAction + ":",
	"document:": TypeDocument + ":",
}

func migrateLegacyID(id string) string {
	for old, current := range legacyIDPrefixes {
		if strings.HasPrefix(id, old) {
			return current + id[len(old):]
		}
	}
	return id
}

func migrateLegacyType(nodeType string) string {
	switch strings.ToLower(nodeType) {
	case "client":
		return TypeClient
	case "trait":
		return TypeTrait
	case "driver":
		return TypeDriver
	case "risk":
		return TypeRisk
	case "action":
		return TypeAction
	case "document":
		return TypeDocument
	}
	return nodeType
}

// DecodeGraphML parses GraphML bytes back into a graph, relabeling legacy
// node ids along the way.
func DecodeGraphML(data []byte) (*Graph, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graphml: %w", err)
	}

	g := New()
	for _, n := range doc.Graph.Nodes {
		g.AddNode(Node{
			ID:       migrateLegacyID(n.ID),
			NodeType: migrateLegacyType(dataValue(n.Data, keyNodeType)),
			Label:    dataValue(n.Data, keyLabel),
		})
	}
	for _, e := range doc.Graph.Edges {
		page, _ := strconv.Atoi(dataValue(e.Data, keyPage))
		confidence, err := strconv.ParseFloat(dataValue(e.Data, keyConfidence), 64)
		if err != nil {
			confidence = DefaultConfidence
		}
		g.AddEdge(Edge{
			Source:     migrateLegacyID(e.Source),
			Target:     migrateLegacyID(e.Target),
			Relation:   dataValue(e.Data, keyRelation),
			DocID:      dataValue(e.Data, keyDocID),
			Page:       page,
			Snippet:    dataValue(e.Data, keySnippet),
			Confidence: confidence,
		})
	}
	return g, nil
}
