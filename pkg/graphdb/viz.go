package graphdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// GraphNode is a chart-ready entity node.
type GraphNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	SymbolSize int    `json:"symbolSize"`
}

// GraphLink is a chart-ready relation edge between two nodes.
type GraphLink struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	RelType string `json:"relType"`
}

// GraphCategory names a node grouping for chart legends.
type GraphCategory struct {
	Name string `json:"name"`
}

// Graph is a chart-ready projection of part of the knowledge graph.
type Graph struct {
	Nodes      []GraphNode     `json:"nodes"`
	Links      []GraphLink     `json:"links"`
	Categories []GraphCategory `json:"categories"`
}

// The legend query runs on its own so that a category whose entities
// were all claimed by earlier rows still shows up.
const entityCategoriesCypher = `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(:Source)-[:HAS_EVENT]->(ev:Event)
RETURN DISTINCT ev.category AS name`

// EntityGraph projects a whole case: entity nodes grouped by the
// category of the events they appear in, linked by relation edges.
func (r *Reader) EntityGraph(ctx context.Context, caseName string) (Graph, error) {
	graph := Graph{Nodes: []GraphNode{}, Links: []GraphLink{}, Categories: []GraphCategory{}}

	result, err := r.client.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		catRes, err := tx.Run(ctx, entityCategoriesCypher,
			map[string]any{"case": caseName})
		if err != nil {
			return nil, err
		}
		categorySet := make(map[string]bool)
		for catRes.Next(ctx) {
			if name := recordString(catRes.Record(), "name"); name != "" {
				categorySet[name] = true
			}
		}
		if err := catRes.Err(); err != nil {
			return nil, err
		}

		nodesRes, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(:Source)-[:HAS_EVENT]->(ev:Event)-[:INVOLVES]->(e:Entity)
RETURN DISTINCT e.name AS name, ev.category AS category`,
			map[string]any{"case": caseName})
		if err != nil {
			return nil, err
		}

		nameToID := make(map[string]string)
		for nodesRes.Next(ctx) {
			record := nodesRes.Record()
			name := recordString(record, "name")
			category := recordString(record, "category")
			if category == "" {
				category = "unknown"
			}
			if _, seen := nameToID[name]; seen {
				continue
			}
			id := strconv.Itoa(len(nameToID))
			nameToID[name] = id
			graph.Nodes = append(graph.Nodes, GraphNode{
				ID:         id,
				Name:       name,
				Category:   category,
				SymbolSize: 10,
			})
		}
		if err := nodesRes.Err(); err != nil {
			return nil, err
		}

		linksRes, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(:Source)-[:HAS_EVENT]->(ev:Event)
MATCH (e1:Entity)-[r:REL {eventId: ev.id}]->(e2:Entity)
RETURN DISTINCT e1.name AS source, e2.name AS target, r.relType AS relType`,
			map[string]any{"case": caseName})
		if err != nil {
			return nil, err
		}
		for linksRes.Next(ctx) {
			record := linksRes.Record()
			source, okSource := nameToID[recordString(record, "source")]
			target, okTarget := nameToID[recordString(record, "target")]
			if !okSource || !okTarget {
				continue
			}
			graph.Links = append(graph.Links, GraphLink{
				Source:  source,
				Target:  target,
				RelType: recordString(record, "relType"),
			})
		}
		if err := linksRes.Err(); err != nil {
			return nil, err
		}

		for cat := range categorySet {
			graph.Categories = append(graph.Categories, GraphCategory{Name: cat})
		}
		sort.Slice(graph.Categories, func(i, j int) bool {
			return graph.Categories[i].Name < graph.Categories[j].Name
		})
		return graph, nil
	})
	if err != nil {
		return Graph{}, fmt.Errorf("entity graph query failed: %w", err)
	}
	return result.(Graph), nil
}

// SourceGraph projects one source of a case: its entities grouped by
// entity type, linked by relation edges of that source's events.
func (r *Reader) SourceGraph(ctx context.Context, caseName, sourceID string) (Graph, error) {
	graph := Graph{Nodes: []GraphNode{}, Links: []GraphLink{}, Categories: []GraphCategory{}}

	result, err := r.client.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodesRes, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(f:Source)-[:HAS_EVENT]->(ev:Event)-[:INVOLVES]->(e:Entity)
WHERE elementId(f) = $sourceId
RETURN DISTINCT e.name AS name, e.type AS type`,
			map[string]any{"case": caseName, "sourceId": sourceID})
		if err != nil {
			return nil, err
		}

		nameToID := make(map[string]string)
		typeSet := make(map[string]bool)
		for nodesRes.Next(ctx) {
			record := nodesRes.Record()
			name := recordString(record, "name")
			entityType := recordString(record, "type")
			if entityType == "" {
				entityType = "unknown"
			}
			id := strconv.Itoa(len(nameToID))
			nameToID[name] = id
			typeSet[entityType] = true
			graph.Nodes = append(graph.Nodes, GraphNode{
				ID:         id,
				Name:       name,
				Category:   entityType,
				SymbolSize: 10,
			})
		}
		if err := nodesRes.Err(); err != nil {
			return nil, err
		}

		linksRes, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(f:Source)-[:HAS_EVENT]->(ev:Event)
WHERE elementId(f) = $sourceId
MATCH (e1:Entity)-[r:REL {eventId: ev.id}]->(e2:Entity)
RETURN DISTINCT e1.name AS source, e2.name AS target, r.relType AS relType`,
			map[string]any{"case": caseName, "sourceId": sourceID})
		if err != nil {
			return nil, err
		}
		for linksRes.Next(ctx) {
			record := linksRes.Record()
			source, okSource := nameToID[recordString(record, "source")]
			target, okTarget := nameToID[recordString(record, "target")]
			if !okSource || !okTarget {
				continue
			}
			graph.Links = append(graph.Links, GraphLink{
				Source:  source,
				Target:  target,
				RelType: recordString(record, "relType"),
			})
		}
		if err := linksRes.Err(); err != nil {
			return nil, err
		}

		for t := range typeSet {
			graph.Categories = append(graph.Categories, GraphCategory{Name: t})
		}
		sort.Slice(graph.Categories, func(i, j int) bool {
			return graph.Categories[i].Name < graph.Categories[j].Name
		})
		return graph, nil
	})
	if err != nil {
		return Graph{}, fmt.Errorf("source graph query failed: %w", err)
	}
	return result.(Graph), nil
}

// RelationNode is a node in the raw relation view of one source.
type RelationNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RelationEdge is one deduplicated relation edge. ID is a fresh nanoid
// so the frontend can address parallel edges.
type RelationEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// RelationGraph is the raw relation view of one source.
type RelationGraph struct {
	Nodes []RelationNode `json:"nodes"`
	Edges []RelationEdge `json:"edges"`
}

// SourceRelationGraph returns the deduplicated relation edges of one
// source, including edges into Year nodes.
func (r *Reader) SourceRelationGraph(ctx context.Context, caseName, sourceID string) (RelationGraph, error) {
	graph := RelationGraph{Nodes: []RelationNode{}, Edges: []RelationEdge{}}

	result, err := r.client.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(f:Source)-[:HAS_EVENT]->(ev:Event)
WHERE elementId(f) = $sourceId
MATCH (n:Entity)-[r:REL {eventId: ev.id}]-(m)
WHERE (m:Year OR (m:Entity AND m.case = $case))
WITH n, m, r.relType AS relType
RETURN DISTINCT n, m, relType`,
			map[string]any{"case": caseName, "sourceId": sourceID})
		if err != nil {
			return nil, err
		}

		seenNodes := make(map[string]bool)
		type edgeKey struct{ from, to, relType string }
		seenEdges := make(map[edgeKey]bool)

		for res.Next(ctx) {
			record := res.Record()
			from, fromLabel, ok := relationNode(record, "n")
			if !ok {
				continue
			}
			to, toLabel, ok := relationNode(record, "m")
			if !ok {
				continue
			}
			relType := recordString(record, "relType")

			if !seenNodes[from] {
				seenNodes[from] = true
				graph.Nodes = append(graph.Nodes, RelationNode{ID: from, Label: fromLabel})
			}
			if !seenNodes[to] {
				seenNodes[to] = true
				graph.Nodes = append(graph.Nodes, RelationNode{ID: to, Label: toLabel})
			}

			key := edgeKey{from: from, to: to, relType: relType}
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true

			edgeID, err := gonanoid.New()
			if err != nil {
				return nil, err
			}
			graph.Edges = append(graph.Edges, RelationEdge{
				ID:    edgeID,
				From:  from,
				To:    to,
				Label: relType,
			})
		}
		return graph, res.Err()
	})
	if err != nil {
		return RelationGraph{}, fmt.Errorf("source relation graph query failed: %w", err)
	}
	return result.(RelationGraph), nil
}

func relationNode(record *neo4j.Record, key string) (id, label string, ok bool) {
	value, found := record.Get(key)
	if !found || value == nil {
		return "", "", false
	}
	node, isNode := value.(dbtype.Node)
	if !isNode {
		return "", "", false
	}
	id = node.ElementId
	if name, hasName := node.Props["name"].(string); hasName && name != "" {
		label = name
	} else if year, hasYear := node.Props["value"].(int64); hasYear {
		label = strconv.FormatInt(year, 10)
	} else {
		label = id
	}
	return id, label, true
}
