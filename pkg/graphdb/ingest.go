package graphdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"casethread/pkg/ai"
	"casethread/pkg/extract"
	"casethread/pkg/logger"
)

var (
	yearRE     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	yearOnlyRE = regexp.MustCompile(`^\d{4}$`)
)

// Ingestor writes extracted statements into the knowledge graph,
// embedding every statement in one batch call per document.
type Ingestor struct {
	client   *Client
	embedder ai.Client

	// reconcileTypes also updates the type of entities that already
	// exist in the graph; otherwise the first observed type sticks.
	reconcileTypes bool
}

type IngestorParams struct {
	Client         *Client
	Embedder       ai.Client
	ReconcileTypes bool
}

func NewIngestor(params IngestorParams) *Ingestor {
	return &Ingestor{
		client:         params.Client,
		embedder:       params.Embedder,
		reconcileTypes: params.ReconcileTypes,
	}
}

type entityRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type eventRow struct {
	EvID      string
	Date      string
	Statement string
	Category  string
	Entities  []entityRef
	Years     []int
	Embedding []float32
	Relations []extract.Relation
}

// HashEvent derives the stable event id from the case, date and
// statement text. Re-ingesting the same statement is a no-op upsert.
func HashEvent(caseName, date, statement string) string {
	sum := sha256.Sum256([]byte(caseName + "|" + date + "|" + statement))
	return hex.EncodeToString(sum[:])
}

func extractYears(text string) []int {
	matches := yearRE.FindAllString(text, -1)
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}

func prepRow(caseName string, s extract.Statement) eventRow {
	entities := make([]entityRef, 0)
	for _, e := range s.EntityList() {
		entities = append(entities, entityRef{Name: e.Name, Type: e.Type})
	}
	return eventRow{
		EvID:      HashEvent(caseName, s.Date, s.Statement),
		Date:      s.Date,
		Statement: s.Statement,
		Category:  s.NormalizedCategory(),
		Entities:  entities,
		Years:     extractYears(s.Statement),
		Relations: s.Relations,
	}
}

type tripleRow struct {
	Subj      string
	Pred      string
	Obj       string
	ObjIsYear bool
	EvID      string
}

// buildTriples filters a row's relations down to complete
// subject-predicate-object triples and tags year objects.
func buildTriples(row eventRow) []tripleRow {
	triples := make([]tripleRow, 0, len(row.Relations))
	for _, rel := range row.Relations {
		// Entity nodes are merged under lower-cased names in stage one;
		// relation endpoints must match or the REL MATCH misses.
		subj := strings.ToLower(strings.TrimSpace(rel.Subject))
		pred := strings.TrimSpace(rel.Predicate)
		obj := strings.ToLower(strings.TrimSpace(rel.Object))
		if subj == "" || pred == "" || obj == "" {
			continue
		}
		triples = append(triples, tripleRow{
			Subj:      subj,
			Pred:      pred,
			Obj:       obj,
			ObjIsYear: yearOnlyRE.MatchString(obj),
			EvID:      row.EvID,
		})
	}
	return triples
}

const coreCypher = `
MERGE (c:Case {name:$case})
MERGE (f:Source {case:$case, name:$source})
  ON CREATE SET f.ingestedAt=datetime($ingestedAt),
    f.docTitle = $docTitle
MERGE (c)-[:HAS_FILE]->(f)
WITH f, $case AS caseName, $rows AS rows
UNWIND rows AS row
MERGE (ev:Event {id:row.evId})
  ON CREATE SET ev.date      = date(row.date),
                ev.statement = row.statement,
                ev.category  = row.category,
                ev.embedding = row.embedding,
                ev.case      = caseName
MERGE (f)-[:HAS_EVENT]->(ev)
WITH ev, row
UNWIND row.entities AS e
MERGE (ent:Entity {case:$case, name:e.name})
  ON CREATE SET ent.type = e.type
MERGE (ev)-[:INVOLVES]->(ent)
WITH ev, row
UNWIND row.years AS yy
MERGE (y:Year {value:yy})
MERGE (ev)-[:HAPPENED_IN]->(y)`

const coreCypherReconcile = `
MERGE (c:Case {name:$case})
MERGE (f:Source {case:$case, name:$source})
  ON CREATE SET f.ingestedAt=datetime($ingestedAt),
    f.docTitle = $docTitle
MERGE (c)-[:HAS_FILE]->(f)
WITH f, $case AS caseName, $rows AS rows
UNWIND rows AS row
MERGE (ev:Event {id:row.evId})
  ON CREATE SET ev.date      = date(row.date),
                ev.statement = row.statement,
                ev.category  = row.category,
                ev.embedding = row.embedding,
                ev.case      = caseName
MERGE (f)-[:HAS_EVENT]->(ev)
WITH ev, row
UNWIND row.entities AS e
MERGE (ent:Entity {case:$case, name:e.name})
  ON CREATE SET ent.type = e.type
  ON MATCH  SET ent.type = e.type
MERGE (ev)-[:INVOLVES]->(ent)
WITH ev, row
UNWIND row.years AS yy
MERGE (y:Year {value:yy})
MERGE (ev)-[:HAPPENED_IN]->(y)`

const relCypher = `
UNWIND $triples AS t
MATCH (sub:Entity {case:$case, name:t.subj})
FOREACH (_ IN CASE WHEN t.objIsYear THEN [1] ELSE [] END |
  MERGE (y:Year {value:toInteger(t.obj)})
  MERGE (sub)-[:REL {relType:t.pred, eventId:t.evId}]->(y)
)
FOREACH (_ IN CASE WHEN t.objIsYear THEN [] ELSE [1] END |
  MERGE (obj:Entity {case:$case, name:t.obj})
  MERGE (sub)-[:REL {relType:t.pred, eventId:t.evId}]->(obj)
)`

// Ingest upserts one document's statements into the graph. Stage one
// merges cases, sources, events, entities and years; stage two adds
// the subject-predicate-object relation edges per event.
func (ing *Ingestor) Ingest(ctx context.Context, caseName, sourceName, docTitle string, statements []extract.Statement) error {
	if len(statements) == 0 {
		return nil
	}

	texts := make([]string, len(statements))
	for i, s := range statements {
		texts[i] = s.Statement
	}
	embeddings, err := ing.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return &WriteError{Op: "embed", Err: err}
	}
	if len(embeddings) != len(statements) {
		return &WriteError{Op: "embed", Err: fmt.Errorf("expected %d embeddings, got %d", len(statements), len(embeddings))}
	}

	rows := make([]eventRow, len(statements))
	for i, s := range statements {
		rows[i] = prepRow(caseName, s)
		rows[i].Embedding = embeddings[i]
	}

	core := pickCoreCypher(ing.reconcileTypes)
	_, err = ing.client.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, core, map[string]any{
			"case":       caseName,
			"source":     sourceName,
			"docTitle":   docTitle,
			"ingestedAt": time.Now().UTC().Format(time.RFC3339),
			"rows":       rowsToParams(rows),
		})
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			triples := buildTriples(row)
			if len(triples) == 0 {
				continue
			}
			_, err := tx.Run(ctx, relCypher, map[string]any{
				"case":    caseName,
				"triples": triplesToParams(triples),
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &WriteError{Op: "ingest", Err: err}
	}

	logger.Info(fmt.Sprintf("%s@%s: ingested %d events", sourceName, caseName, len(rows)))
	return nil
}

func pickCoreCypher(reconcile bool) string {
	if reconcile {
		return coreCypherReconcile
	}
	return coreCypher
}

func rowsToParams(rows []eventRow) []map[string]any {
	params := make([]map[string]any, len(rows))
	for i, row := range rows {
		entities := make([]map[string]any, len(row.Entities))
		for j, e := range row.Entities {
			entities[j] = map[string]any{"name": e.Name, "type": e.Type}
		}
		params[i] = map[string]any{
			"evId":      row.EvID,
			"date":      row.Date,
			"statement": row.Statement,
			"category":  row.Category,
			"entities":  entities,
			"years":     row.Years,
			"embedding": row.Embedding,
		}
	}
	return params
}

func triplesToParams(triples []tripleRow) []map[string]any {
	params := make([]map[string]any, len(triples))
	for i, t := range triples {
		params[i] = map[string]any{
			"subj":      t.Subj,
			"pred":      t.Pred,
			"obj":       t.Obj,
			"objIsYear": t.ObjIsYear,
			"evId":      t.EvID,
		}
	}
	return params
}
