package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"casethread/pkg/logger"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT case_name_unique IF NOT EXISTS
FOR (c:Case) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT source_unique IF NOT EXISTS
FOR (f:Source) REQUIRE (f.case, f.name) IS UNIQUE`,
	`CREATE CONSTRAINT event_id_unique IF NOT EXISTS
FOR (ev:Event) REQUIRE ev.id IS UNIQUE`,
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS
FOR (e:Entity) REQUIRE (e.case, e.name) IS UNIQUE`,
	`CREATE INDEX event_date IF NOT EXISTS
FOR (ev:Event) ON (ev.date)`,
}

// EnsureSchema creates the uniqueness constraints and indexes the
// ingestion MERGE queries rely on. Safe to run repeatedly.
func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.session(ctx)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	logger.Debug("graph schema constraints ensured")
	return nil
}
