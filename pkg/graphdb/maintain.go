package graphdb

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Orphan sweeps run after every delete so that events without sources,
// entities without events and years without events never linger.
var (
	sweepOrphans = []string{
		`MATCH (ev:Event) WHERE NOT (ev)<-[:HAS_EVENT]-(:Source) DETACH DELETE ev`,
		`MATCH (e:Entity) WHERE NOT (e)<-[:INVOLVES]-(:Event) DETACH DELETE e`,
		`MATCH (y:Year) WHERE NOT (y)<-[:HAPPENED_IN]-(:Event) DETACH DELETE y`,
	}

	deleteCaseStatements = []string{
		`MATCH (c:Case {name:$case})-[:HAS_FILE]->(f:Source) DETACH DELETE f`,
		`MATCH (c:Case {name:$case}) DETACH DELETE c`,
	}

	deleteSourceStatements = []string{
		`MATCH (c:Case {name:$case})-[:HAS_FILE]->(f:Source {name:$source}) DETACH DELETE f`,
	}
)

func (c *Client) runStatements(ctx context.Context, op string, statements []string, params map[string]any) error {
	_, err := c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range statements {
			if _, err := tx.Run(ctx, stmt, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return &WriteError{Op: op, Err: err}
	}
	return nil
}

// DeleteCase removes a case, all its sources and anything orphaned by
// their removal.
func (c *Client) DeleteCase(ctx context.Context, caseName string) error {
	statements := append(append([]string{}, deleteCaseStatements...), sweepOrphans...)
	return c.runStatements(ctx, "delete case", statements, map[string]any{"case": caseName})
}

// DeleteSource removes one source from a case and sweeps orphans.
// Events still referenced by another source survive.
func (c *Client) DeleteSource(ctx context.Context, caseName, sourceName string) error {
	statements := append(append([]string{}, deleteSourceStatements...), sweepOrphans...)
	return c.runStatements(ctx, "delete source", statements, map[string]any{
		"case":   caseName,
		"source": sourceName,
	})
}

// DeleteEvent detaches an event from its sources and, once no source
// references it, removes the event with its relation edges before
// sweeping orphans.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	statements := []string{
		`MATCH (:Source)-[he:HAS_EVENT]->(ev:Event {id:$eventId}) DELETE he`,
		`MATCH (ev:Event {id:$eventId})
WHERE NOT (ev)<-[:HAS_EVENT]-(:Source)
OPTIONAL MATCH ()-[re:REL {eventId:$eventId}]-()
DELETE re
DETACH DELETE ev`,
	}
	statements = append(statements, sweepOrphans...)
	return c.runStatements(ctx, "delete event", statements, map[string]any{"eventId": eventID})
}

// DeleteEntity removes one entity from a case along with its edges.
func (c *Client) DeleteEntity(ctx context.Context, caseName, entityName string) error {
	return c.runStatements(ctx, "delete entity", []string{
		`MATCH (e:Entity {case:$case, name:$entity}) DETACH DELETE e`,
	}, map[string]any{
		"case":   caseName,
		"entity": entityName,
	})
}

// EventUpdate carries the editable event fields. Nil fields keep
// their current value.
type EventUpdate struct {
	Statement *string
	Category  *string
	Date      *string
	Tag       *string
}

// UpdateEventFields patches an event in place.
func (c *Client) UpdateEventFields(ctx context.Context, eventID string, update EventUpdate) error {
	return c.runStatements(ctx, "update event", []string{
		`MATCH (ev:Event {id: $eventId})
SET ev.statement = coalesce($statement, ev.statement),
    ev.category  = coalesce($category, ev.category),
    ev.date      = coalesce(date($date), ev.date),
    ev.tag       = coalesce($tag, ev.tag)`,
	}, map[string]any{
		"eventId":   eventID,
		"statement": stringOrNil(update.Statement),
		"category":  stringOrNil(update.Category),
		"date":      stringOrNil(update.Date),
		"tag":       stringOrNil(update.Tag),
	})
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Source identifies one ingested source within a case.
type Source struct {
	ID   string `json:"sourceId"`
	Name string `json:"sourceName"`
}

// ListSources returns the sources ingested for a case.
func (c *Client) ListSources(ctx context.Context, caseName string) ([]Source, error) {
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Case {name: $case})-[:HAS_FILE]->(f:Source)
RETURN elementId(f) AS sourceId, f.name AS sourceName`,
			map[string]any{"case": caseName})
		if err != nil {
			return nil, err
		}

		var sources []Source
		for res.Next(ctx) {
			record := res.Record()
			sources = append(sources, Source{
				ID:   recordString(record, "sourceId"),
				Name: recordString(record, "sourceName"),
			})
		}
		return sources, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]Source), nil
}
